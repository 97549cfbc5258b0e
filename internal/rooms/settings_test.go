package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hotseat/internal/models"
)

func TestNormalizeSettings_Clamps(t *testing.T) {
	tests := []struct {
		name string
		in   models.Settings
		want models.Settings
	}{
		{
			name: "in range",
			in:   models.Settings{LobbyName: "Party", Rounds: 3, PlayerLimit: 4, TimeLimit: 60},
			want: models.Settings{LobbyName: "Party", Rounds: 3, PlayerLimit: 4, TimeLimit: 60},
		},
		{
			name: "below range",
			in:   models.Settings{LobbyName: "Party", Rounds: 0, PlayerLimit: 1, TimeLimit: 3},
			want: models.Settings{LobbyName: "Party", Rounds: 1, PlayerLimit: 2, TimeLimit: 15},
		},
		{
			name: "above range",
			in:   models.Settings{LobbyName: "Party", Rounds: 9, PlayerLimit: 50, TimeLimit: 999},
			want: models.Settings{LobbyName: "Party", Rounds: 5, PlayerLimit: 20, TimeLimit: 300},
		},
		{
			name: "time rounds down",
			in:   models.Settings{LobbyName: "Party", Rounds: 2, PlayerLimit: 8, TimeLimit: 22},
			want: models.Settings{LobbyName: "Party", Rounds: 2, PlayerLimit: 8, TimeLimit: 15},
		},
		{
			name: "time rounds up",
			in:   models.Settings{LobbyName: "  Party  ", Rounds: 2, PlayerLimit: 8, TimeLimit: 23},
			want: models.Settings{LobbyName: "Party", Rounds: 2, PlayerLimit: 8, TimeLimit: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, got, err := NormalizeSettings(" Alice ", tt.in)
			require.NoError(t, err)
			assert.Equal(t, "Alice", host)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSettings_AlwaysInRange(t *testing.T) {
	for v := -50; v <= 400; v += 7 {
		_, got, err := NormalizeSettings("Alice", models.Settings{LobbyName: "x", Rounds: v, PlayerLimit: v, TimeLimit: v})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Rounds, MinRounds)
		assert.LessOrEqual(t, got.Rounds, MaxRounds)
		assert.GreaterOrEqual(t, got.PlayerLimit, MinPlayers)
		assert.LessOrEqual(t, got.PlayerLimit, MaxPlayers)
		assert.GreaterOrEqual(t, got.TimeLimit, TimeLimitStep)
		assert.LessOrEqual(t, got.TimeLimit, MaxTimeLimit)
		assert.Zero(t, got.TimeLimit%TimeLimitStep)
	}
}

func TestNormalizeSettings_RejectsNames(t *testing.T) {
	_, _, err := NormalizeSettings("", models.Settings{LobbyName: "Party"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = NormalizeSettings("Alice", models.Settings{LobbyName: " "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = NormalizeSettings("Alice-with-a-name-that-goes-on-forever", models.Settings{LobbyName: "Party"})
	assert.ErrorIs(t, err, models.ErrValidation)
}
