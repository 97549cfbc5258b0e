package models

import "time"

type Status string

const (
	StatusLobby       Status = "LOBBY"
	StatusPromptEntry Status = "PROMPT_ENTRY"
	StatusDefense     Status = "DEFENSE"
	StatusVoting      Status = "VOTING"
	StatusResults     Status = "RESULTS"
)

func (s Status) Valid() bool {
	switch s {
	case StatusLobby, StatusPromptEntry, StatusDefense, StatusVoting, StatusResults:
		return true
	}
	return false
}

// InGame reports whether a game is running (prompt intake through voting).
func (s Status) InGame() bool {
	return s == StatusPromptEntry || s == StatusDefense || s == StatusVoting
}

type Settings struct {
	LobbyName   string `json:"lobbyName"`
	Rounds      int    `json:"rounds"`
	PlayerLimit int    `json:"playerLimit"`
	TimeLimit   int    `json:"timeLimit"` // seconds
}

type Room struct {
	ID        string     `json:"id"`
	JoinCode  string     `json:"joinCode"`
	Status    Status     `json:"status"`
	Settings  Settings   `json:"settings"`
	Players   []Player   `json:"players"`
	GameState *GameState `json:"gameState,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Player returns the player with the given id.
func (r *Room) Player(id string) (*Player, bool) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i], true
		}
	}
	return nil, false
}

func (r *Room) Host() (*Player, bool) {
	for i := range r.Players {
		if r.Players[i].IsHost {
			return &r.Players[i], true
		}
	}
	return nil, false
}

// RemovePlayer drops the player from the roster and reports whether it was present.
func (r *Room) RemovePlayer(id string) bool {
	for i := range r.Players {
		if r.Players[i].ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}
