package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hotseat/internal/models"
)

func TestNewGameResult(t *testing.T) {
	finished := time.Date(2026, 5, 2, 18, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	room := &models.Room{
		ID:       "room-1",
		JoinCode: "7K3XQ",
		Status:   models.StatusResults,
		Settings: models.Settings{LobbyName: "Friday"},
		Players: []models.Player{
			{ID: "a", Name: "Alice", Score: 4},
			{ID: "b", Name: "Bob", Score: 9},
			{ID: "c", Name: "Cleo", Score: 4},
		},
		GameState: &models.GameState{Turn: 3},
	}

	result, err := NewGameResult(room, finished)
	require.NoError(t, err)

	assert.Equal(t, "room-1", result.RoomID)
	assert.Equal(t, "7K3XQ", result.JoinCode)
	assert.Equal(t, "Friday", result.LobbyName)
	assert.Equal(t, 3, result.Turns)
	assert.Equal(t, time.UTC, result.FinishedAt.Location())
	assert.True(t, finished.Equal(result.FinishedAt))

	var board []models.ScoreEntry
	require.NoError(t, json.Unmarshal(result.Scoreboard, &board))
	assert.Equal(t, []models.ScoreEntry{
		{PlayerID: "b", Name: "Bob", Score: 9},
		{PlayerID: "a", Name: "Alice", Score: 4},
		{PlayerID: "c", Name: "Cleo", Score: 4},
	}, board)
}

func TestNewGameResult_WithoutState(t *testing.T) {
	result, err := NewGameResult(&models.Room{ID: "r"}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, result.Turns)
	assert.JSONEq(t, "[]", string(result.Scoreboard))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultResultsLimit},
		{-3, DefaultResultsLimit},
		{5, 5},
		{MaxResultsLimit, MaxResultsLimit},
		{MaxResultsLimit + 1, MaxResultsLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestConnect_RequiresDSN(t *testing.T) {
	_, err := Connect("")
	assert.ErrorIs(t, err, ErrNoDSN)
}
