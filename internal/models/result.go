package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GameResult is the archived scoreboard of a finished game.
type GameResult struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoomID     string         `gorm:"index;not null" json:"roomId"`
	JoinCode   string         `gorm:"size:12;not null" json:"joinCode"`
	LobbyName  string         `gorm:"not null" json:"lobbyName"`
	Turns      int            `gorm:"not null;default:0" json:"turns"`
	Scoreboard datatypes.JSON `gorm:"type:jsonb;not null" json:"scoreboard"`
	FinishedAt time.Time      `gorm:"index;not null" json:"finishedAt"`
}

type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}
