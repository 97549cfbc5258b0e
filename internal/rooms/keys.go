package rooms

const (
	fieldJoinCode    = "joinCode"
	fieldStatus      = "status"
	fieldLobbyName   = "lobbyName"
	fieldRounds      = "rounds"
	fieldPlayerLimit = "playerLimit"
	fieldTimeLimit   = "timeLimit"
	fieldCreatedAt   = "createdAt"
	fieldGameState   = "gameState"
)

// room:{id} hash -> metadata and the encoded game state
func roomKey(id string) string {
	return "room:" + id
}

// room:{id}:players hash -> player id -> player JSON
func playersKey(roomID string) string {
	return "room:" + roomID + ":players"
}

// join:{CODE} string -> room id
func joinKey(code string) string {
	return "join:" + code
}
