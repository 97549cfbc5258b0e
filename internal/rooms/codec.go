package rooms

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/models"
)

func encodeMeta(room *models.Room) (map[string]interface{}, error) {
	gs, err := models.EncodeGameState(room.GameState)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		fieldJoinCode:    room.JoinCode,
		fieldStatus:      string(room.Status),
		fieldLobbyName:   room.Settings.LobbyName,
		fieldRounds:      strconv.Itoa(room.Settings.Rounds),
		fieldPlayerLimit: strconv.Itoa(room.Settings.PlayerLimit),
		fieldTimeLimit:   strconv.Itoa(room.Settings.TimeLimit),
		fieldCreatedAt:   room.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldGameState:   gs,
	}, nil
}

func encodePlayer(p models.Player) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode player %s: %w", p.ID, err)
	}
	return string(data), nil
}

// decodeRoom builds a room from its two hashes. Broken metadata fails the
// call; a broken player entry or game state blob is logged and dropped.
func decodeRoom(id string, meta, players map[string]string, log zerolog.Logger) (*models.Room, error) {
	status := models.Status(meta[fieldStatus])
	if !status.Valid() {
		return nil, fmt.Errorf("%w: room %s has status %q", models.ErrCorruptRoom, id, meta[fieldStatus])
	}

	var settings models.Settings
	settings.LobbyName = meta[fieldLobbyName]
	for field, dst := range map[string]*int{
		fieldRounds:      &settings.Rounds,
		fieldPlayerLimit: &settings.PlayerLimit,
		fieldTimeLimit:   &settings.TimeLimit,
	} {
		n, err := strconv.Atoi(meta[field])
		if err != nil {
			return nil, fmt.Errorf("%w: room %s field %s: %v", models.ErrCorruptRoom, id, field, err)
		}
		*dst = n
	}

	room := &models.Room{
		ID:       id,
		JoinCode: meta[fieldJoinCode],
		Status:   status,
		Settings: settings,
		Players:  make([]models.Player, 0, len(players)),
	}

	if raw := meta[fieldCreatedAt]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			room.CreatedAt = ts
		} else {
			log.Warn().Err(err).Str("room_id", id).Msg("unreadable room createdAt")
		}
	}

	gs, err := models.DecodeGameState(meta[fieldGameState])
	if err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("dropping unreadable game state")
		gs = nil
	}
	if gs == nil && status != models.StatusLobby {
		gs = models.NewGameState()
	}
	// A defense or vote with no turn to act on can never advance; end the game.
	if (status == models.StatusDefense || status == models.StatusVoting) && gs.CurrentTurn == nil {
		log.Error().Str("room_id", id).Str("status", string(status)).Msg("game state has no current turn, moving room to results")
		room.Status = models.StatusResults
		gs = models.NewGameState()
	}
	room.GameState = gs

	for playerID, raw := range players {
		var p models.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.Error().Err(err).Str("room_id", id).Str("player_id", playerID).Msg("skipping unreadable player")
			continue
		}
		if p.ID == "" {
			p.ID = playerID
		}
		room.Players = append(room.Players, p)
	}
	sortPlayers(room.Players)

	return room, nil
}

// sortPlayers orders by join time; the hash itself is unordered.
func sortPlayers(players []models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
}
