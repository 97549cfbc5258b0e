package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/thereayou/hotseat/internal/models"
)

type LeaveResult struct {
	// Closed is set when the host left and the room was destroyed.
	Closed bool
	// Room is the room after the departure; nil when closed or already gone.
	Room *models.Room
}

// LeaveRoom removes a player. When the host leaves the whole room goes with
// them. A missing room or player is not an error.
func (s *Store) LeaveRoom(ctx context.Context, roomID, playerID string) (LeaveResult, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return LeaveResult{}, err
	}
	if room == nil {
		return LeaveResult{}, nil
	}
	player, ok := room.Player(playerID)
	if !ok {
		return LeaveResult{Room: room}, nil
	}

	if player.IsHost {
		if err := s.destroy(ctx, room); err != nil {
			return LeaveResult{}, err
		}
		s.log.Info().Str("room_id", roomID).Msg("host left, room closed")
		s.announceClosed(ctx, roomID)
		return LeaveResult{Closed: true}, nil
	}

	updated, err := s.removePlayer(ctx, roomID, playerID)
	if err != nil {
		return LeaveResult{}, err
	}
	return LeaveResult{Room: updated}, nil
}

// KickPlayer removes a non-host player. The host cannot be kicked.
func (s *Store) KickPlayer(ctx context.Context, roomID, playerID string) (*models.Room, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, nil
	}
	player, ok := room.Player(playerID)
	if !ok {
		return room, nil
	}
	if player.IsHost {
		return nil, fmt.Errorf("%w: the host cannot be kicked", models.ErrValidation)
	}
	return s.removePlayer(ctx, roomID, playerID)
}

func (s *Store) removePlayer(ctx context.Context, roomID, playerID string) (*models.Room, error) {
	var after func(context.Context, *models.Room)
	room, err := s.Update(ctx, roomID, func(room *models.Room) error {
		after = nil
		if !room.RemovePlayer(playerID) {
			return ErrNoop
		}
		if room.GameState != nil {
			delete(room.GameState.Votes, playerID)
		}
		if s.departures != nil && room.Status.InGame() {
			after = s.departures.ReconcileDeparture(room)
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrNoop):
		return room, nil
	case isNotFound(err):
		return nil, nil
	case err != nil:
		return nil, err
	}

	s.log.Info().Str("room_id", roomID).Str("player_id", playerID).Str("status", string(room.Status)).Msg("player removed")
	if after != nil {
		after(ctx, room)
	}
	s.announceUpdated(ctx, room)
	return room, nil
}

// destroy deletes the room, its players and its join code in one MULTI.
func (s *Store) destroy(ctx context.Context, room *models.Room) error {
	err := s.kv.Batch(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(room.ID), playersKey(room.ID), joinKey(room.JoinCode))
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to delete room")
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}
