package dto

import (
	"encoding/json"
	"time"

	"github.com/thereayou/hotseat/internal/models"
)

type ResultResponse struct {
	ID         string              `json:"id"`
	RoomID     string              `json:"roomId"`
	JoinCode   string              `json:"joinCode"`
	LobbyName  string              `json:"lobbyName"`
	Turns      int                 `json:"turns"`
	Scoreboard []models.ScoreEntry `json:"scoreboard"`
	FinishedAt time.Time           `json:"finishedAt"`
}

func NewResultResponse(r models.GameResult) ResultResponse {
	board := []models.ScoreEntry{}
	if len(r.Scoreboard) > 0 {
		// A malformed column renders as an empty board.
		_ = json.Unmarshal(r.Scoreboard, &board)
	}
	return ResultResponse{
		ID:         r.ID.String(),
		RoomID:     r.RoomID,
		JoinCode:   r.JoinCode,
		LobbyName:  r.LobbyName,
		Turns:      r.Turns,
		Scoreboard: board,
		FinishedAt: r.FinishedAt,
	}
}
