// Package rooms owns room and player records in Redis.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/events"
	"github.com/thereayou/hotseat/internal/joincode"
	"github.com/thereayou/hotseat/internal/kv"
	"github.com/thereayou/hotseat/internal/models"
)

const (
	DefaultTTL = 30 * time.Minute

	// maxCodeAttempts bounds the join code reservation loop.
	maxCodeAttempts = 10
)

// DepartureHandler adjusts a running game inside the write that removes a
// player, so the removal and its consequences commit together.
// ReconcileDeparture may run once per write attempt. The function returned by
// the committing attempt runs once after the write, before the room is
// announced; nil means there is nothing to do.
type DepartureHandler interface {
	ReconcileDeparture(room *models.Room) func(ctx context.Context, room *models.Room)
}

type Store struct {
	kv         *kv.Client
	notifier   events.Notifier
	log        zerolog.Logger
	ttl        time.Duration
	now        func() time.Time
	newID      func() string
	newCode    func() string
	departures DepartureHandler
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(s *Store) { s.newCode = gen }
}

func NewStore(c *kv.Client, notifier events.Notifier, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:       c,
		notifier: notifier,
		log:      log.With().Str("component", "rooms").Logger(),
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		newCode:  func() string { return joincode.Make(joincode.DefaultLength) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleDepartures registers h for removals from rooms with a game running.
func (s *Store) HandleDepartures(h DepartureHandler) {
	s.departures = h
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// CreateRoom reserves a join code and writes the room with its host.
func (s *Store) CreateRoom(ctx context.Context, hostName string, settings models.Settings) (*models.Room, string, error) {
	hostName, settings, err := NormalizeSettings(hostName, settings)
	if err != nil {
		return nil, "", err
	}

	roomID := s.newID()
	code, err := s.reserveCode(ctx, roomID)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	host := models.Player{
		ID:       s.newID(),
		Name:     hostName,
		IsHost:   true,
		Score:    0,
		JoinedAt: now,
	}
	room := &models.Room{
		ID:        roomID,
		JoinCode:  code,
		Status:    models.StatusLobby,
		Settings:  settings,
		Players:   []models.Player{host},
		CreatedAt: now,
	}

	meta, err := encodeMeta(room)
	if err != nil {
		return nil, "", err
	}
	hostJSON, err := encodePlayer(host)
	if err != nil {
		return nil, "", err
	}

	err = s.kv.Batch(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey(roomID), meta)
		pipe.HSet(ctx, playersKey(roomID), host.ID, hostJSON)
		kv.Touch(ctx, pipe, s.ttl, roomKey(roomID), playersKey(roomID), joinKey(code))
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("failed to write new room")
		if delErr := s.kv.Redis().Del(ctx, joinKey(code)).Err(); delErr != nil {
			s.log.Warn().Err(delErr).Str("join_code", code).Msg("failed to release join code")
		}
		return nil, "", fmt.Errorf("create room: %w", err)
	}

	s.log.Info().Str("room_id", roomID).Str("join_code", code).Msg("room created")
	s.announceUpdated(ctx, room)
	return room, host.ID, nil
}

func (s *Store) reserveCode(ctx context.Context, roomID string) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.newCode()
		ok, err := s.kv.SetIfAbsent(ctx, joinKey(code), roomID, s.ttl)
		if err != nil {
			return "", fmt.Errorf("reserve join code: %w", err)
		}
		if ok {
			return code, nil
		}
		s.log.Debug().Str("join_code", code).Msg("join code taken, retrying")
	}
	return "", models.ErrCodeExhausted
}

// GetRoomByID returns nil when the room does not exist.
func (s *Store) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	if id == "" {
		return nil, nil
	}
	hashes, err := s.kv.HashesGetAll(ctx, roomKey(id), playersKey(id))
	if err != nil {
		s.log.Error().Err(err).Str("room_id", id).Msg("failed to read room")
		return nil, fmt.Errorf("get room: %w", err)
	}
	if len(hashes[0]) == 0 {
		return nil, nil
	}
	room, err := decodeRoom(id, hashes[0], hashes[1], s.log)
	if err != nil {
		s.log.Error().Err(err).Str("room_id", id).Msg("corrupt room")
		return nil, err
	}
	return room, nil
}

// GetRoomByJoinCode resolves code case-insensitively.
func (s *Store) GetRoomByJoinCode(ctx context.Context, code string) (*models.Room, error) {
	code = joincode.Normalize(code)
	if code == "" {
		return nil, nil
	}
	roomID, ok, err := s.kv.Get(ctx, joinKey(code))
	if err != nil {
		return nil, fmt.Errorf("resolve join code: %w", err)
	}
	if !ok || roomID == "" {
		return nil, nil
	}
	return s.GetRoomByID(ctx, roomID)
}

// JoinRoom admits a new player while the room is in the lobby and has a free seat.
func (s *Store) JoinRoom(ctx context.Context, code, playerName string) (*models.Room, string, error) {
	code = joincode.Normalize(code)
	if code == "" {
		return nil, "", fmt.Errorf("%w: joinCode required", models.ErrValidation)
	}
	name, err := NormalizePlayerName(playerName)
	if err != nil {
		return nil, "", err
	}

	roomID, ok, err := s.kv.Get(ctx, joinKey(code))
	if err != nil {
		return nil, "", fmt.Errorf("resolve join code: %w", err)
	}
	if !ok {
		return nil, "", models.ErrRoomNotFound
	}

	player := models.Player{
		ID:       s.newID(),
		Name:     name,
		JoinedAt: s.now().UTC(),
	}
	playerJSON, err := encodePlayer(player)
	if err != nil {
		return nil, "", err
	}

	res, err := s.kv.RunScript(ctx, joinScript,
		[]string{joinKey(code), roomKey(roomID), playersKey(roomID)},
		roomID, player.ID, playerJSON, int(s.ttl/time.Second),
	)
	if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("join script failed")
		return nil, "", fmt.Errorf("join room: %w", err)
	}

	switch result, _ := res.(int64); result {
	case joinOK:
	case joinNotFound:
		return nil, "", models.ErrRoomNotFound
	case joinStarted:
		return nil, "", models.ErrGameStarted
	case joinFull:
		return nil, "", models.ErrRoomFull
	case joinCorrupt:
		return nil, "", fmt.Errorf("%w: room %s has no player limit", models.ErrCorruptRoom, roomID)
	default:
		return nil, "", fmt.Errorf("join room: unexpected script result %v", res)
	}

	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	if room == nil {
		return nil, "", models.ErrRoomNotFound
	}

	s.log.Info().Str("room_id", roomID).Str("player_id", player.ID).Msg("player joined")
	s.announceUpdated(ctx, room)
	return room, player.ID, nil
}

// StartGame moves the room from the lobby into prompt entry.
func (s *Store) StartGame(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.Update(ctx, roomID, func(room *models.Room) error {
		if room.Status != models.StatusLobby {
			return models.ErrWrongPhase
		}
		if len(room.Players) < MinPlayers {
			return models.ErrNotEnoughPlayers
		}
		room.Status = models.StatusPromptEntry
		room.GameState = models.NewGameState()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("room_id", roomID).Msg("game started")
	s.announceUpdated(ctx, room)
	return room, nil
}

func (s *Store) announceUpdated(ctx context.Context, room *models.Room) {
	if err := s.notifier.AnnounceRoomUpdated(ctx, room); err != nil {
		s.log.Warn().Err(err).Str("room_id", room.ID).Msg("room updated announcement failed")
	}
}

func (s *Store) announceClosed(ctx context.Context, roomID string) {
	if err := s.notifier.AnnounceRoomClosed(ctx, roomID); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID).Msg("room closed announcement failed")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrRoomNotFound)
}
