package dto

import (
	"sort"
	"time"

	"github.com/thereayou/hotseat/internal/models"
)

type CreateRoomRequest struct {
	HostName    string `json:"hostName" binding:"required"`
	LobbyName   string `json:"lobbyName" binding:"required"`
	Rounds      int    `json:"rounds"`
	PlayerLimit int    `json:"playerLimit"`
	TimeLimit   int    `json:"timeLimit"`
}

func (r CreateRoomRequest) Settings() models.Settings {
	return models.Settings{
		LobbyName:   r.LobbyName,
		Rounds:      r.Rounds,
		PlayerLimit: r.PlayerLimit,
		TimeLimit:   r.TimeLimit,
	}
}

type JoinRoomRequest struct {
	JoinCode   string `json:"joinCode" binding:"required"`
	PlayerName string `json:"playerName" binding:"required"`
}

type PlayerRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
}

type PromptRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// VoteRequest carries a pointer so that a zero vote is distinguishable from a
// missing one.
type VoteRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	Value    *int   `json:"value" binding:"required"`
}

type PlayerResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GameStateResponse is what every client may see of a running game. Prompt
// texts other than the current one and vote values stay on the server.
type GameStateResponse struct {
	Deadline              *time.Time       `json:"deadline"`
	VotesCast             int              `json:"votesCast"`
	SubmittedPromptsCount int              `json:"submittedPromptsCount"`
	CurrentTurn           *models.TurnInfo `json:"currentTurn"`
	Turn                  int              `json:"turn"`
	QueueRemaining        int              `json:"queueRemaining"`
	SubmittedBy           []string         `json:"submittedBy"`
	VotedBy               []string         `json:"votedBy"`
}

type RoomResponse struct {
	ID        string             `json:"id"`
	JoinCode  string             `json:"joinCode"`
	Status    models.Status      `json:"status"`
	Settings  models.Settings    `json:"settings"`
	Players   []PlayerResponse   `json:"players"`
	GameState *GameStateResponse `json:"gameState"`
	CreatedAt time.Time          `json:"createdAt"`
}

func NewRoomResponse(room *models.Room) *RoomResponse {
	if room == nil {
		return nil
	}
	players := make([]PlayerResponse, len(room.Players))
	for i, p := range room.Players {
		players[i] = PlayerResponse{
			ID:       p.ID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
		}
	}
	return &RoomResponse{
		ID:        room.ID,
		JoinCode:  room.JoinCode,
		Status:    room.Status,
		Settings:  room.Settings,
		Players:   players,
		GameState: newGameStateResponse(room.GameState),
		CreatedAt: room.CreatedAt,
	}
}

func newGameStateResponse(gs *models.GameState) *GameStateResponse {
	if gs == nil {
		return nil
	}
	submitted := make([]string, 0, len(gs.Prompts))
	for _, p := range gs.Prompts {
		submitted = append(submitted, p.AuthorID)
	}
	voted := make([]string, 0, len(gs.Votes))
	for id := range gs.Votes {
		voted = append(voted, id)
	}
	sort.Strings(voted)

	return &GameStateResponse{
		Deadline:              gs.Deadline,
		VotesCast:             len(gs.Votes),
		SubmittedPromptsCount: len(gs.Prompts),
		CurrentTurn:           gs.CurrentTurn,
		Turn:                  gs.Turn,
		QueueRemaining:        len(gs.Queue),
		SubmittedBy:           submitted,
		VotedBy:               voted,
	}
}

type CreateRoomResponse struct {
	Room         *RoomResponse `json:"room"`
	HostPlayerID string        `json:"hostPlayerId"`
}

type JoinRoomResponse struct {
	Room     *RoomResponse `json:"room"`
	PlayerID string        `json:"playerId"`
}

type LeaveRoomResponse struct {
	Closed bool          `json:"closed"`
	Room   *RoomResponse `json:"room,omitempty"`
}

type EndTurnResponse struct {
	Ended bool `json:"ended"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
