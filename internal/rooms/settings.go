package rooms

import (
	"fmt"
	"math"
	"strings"

	"github.com/thereayou/hotseat/internal/models"
)

const (
	MinRounds      = 1
	MaxRounds      = 5
	MinPlayers     = 2
	MaxPlayers     = 20
	TimeLimitStep  = 15
	MaxTimeLimit   = 300
	MaxNameLength  = 32
	MaxLobbyLength = 48
)

// NormalizeSettings trims the names and clamps every numeric setting into range.
func NormalizeSettings(hostName string, in models.Settings) (string, models.Settings, error) {
	hostName = strings.TrimSpace(hostName)
	lobbyName := strings.TrimSpace(in.LobbyName)

	if hostName == "" {
		return "", models.Settings{}, fmt.Errorf("%w: hostName required", models.ErrValidation)
	}
	if lobbyName == "" {
		return "", models.Settings{}, fmt.Errorf("%w: lobbyName required", models.ErrValidation)
	}
	if err := checkLength("hostName", hostName, MaxNameLength); err != nil {
		return "", models.Settings{}, err
	}
	if err := checkLength("lobbyName", lobbyName, MaxLobbyLength); err != nil {
		return "", models.Settings{}, err
	}

	raw := clamp(in.TimeLimit, TimeLimitStep, MaxTimeLimit)
	timeLimit := int(math.Round(float64(raw)/TimeLimitStep)) * TimeLimitStep

	return hostName, models.Settings{
		LobbyName:   lobbyName,
		Rounds:      clamp(in.Rounds, MinRounds, MaxRounds),
		PlayerLimit: clamp(in.PlayerLimit, MinPlayers, MaxPlayers),
		TimeLimit:   timeLimit,
	}, nil
}

// NormalizePlayerName trims name and checks it is usable.
func NormalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: playerName required", models.ErrValidation)
	}
	if err := checkLength("playerName", name, MaxNameLength); err != nil {
		return "", err
	}
	return name, nil
}

func checkLength(field, value string, max int) error {
	if len([]rune(value)) > max {
		return fmt.Errorf("%w: %s longer than %d characters", models.ErrValidation, field, max)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
