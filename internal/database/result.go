package database

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/thereayou/hotseat/internal/models"
)

const (
	DefaultResultsLimit = 20
	MaxResultsLimit     = 100
)

// NewGameResult snapshots the scoreboard of a room, best score first.
func NewGameResult(room *models.Room, finishedAt time.Time) (*models.GameResult, error) {
	board := make([]models.ScoreEntry, 0, len(room.Players))
	for _, p := range room.Players {
		board = append(board, models.ScoreEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(board, func(i, j int) bool { return board[i].Score > board[j].Score })

	raw, err := json.Marshal(board)
	if err != nil {
		return nil, err
	}

	turns := 0
	if room.GameState != nil {
		turns = room.GameState.Turn
	}

	return &models.GameResult{
		RoomID:     room.ID,
		JoinCode:   room.JoinCode,
		LobbyName:  room.Settings.LobbyName,
		Turns:      turns,
		Scoreboard: datatypes.JSON(raw),
		FinishedAt: finishedAt.UTC(),
	}, nil
}

func (d *Database) RecordResult(ctx context.Context, room *models.Room) error {
	result, err := NewGameResult(room, time.Now())
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Create(result).Error
}

// RecentResults returns the latest archived games, newest first.
func (d *Database) RecentResults(ctx context.Context, limit int) ([]models.GameResult, error) {
	limit = ClampLimit(limit)
	var results []models.GameResult
	err := d.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultResultsLimit
	case limit > MaxResultsLimit:
		return MaxResultsLimit
	}
	return limit
}
