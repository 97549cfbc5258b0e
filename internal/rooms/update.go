package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/thereayou/hotseat/internal/kv"
	"github.com/thereayou/hotseat/internal/models"
)

// ErrNoop may be returned by an Update callback to skip the write. Update then
// returns the room as read together with ErrNoop.
var ErrNoop = errors.New("rooms: nothing to update")

// Update runs fn against the current room inside an optimistic transaction on
// the room and players hashes. fn may run several times and must not have side
// effects outside the room it is given. The committed room is returned.
//
// fn may change Status, GameState and player scores, and remove players. Settings,
// join code and host are immutable.
func (s *Store) Update(ctx context.Context, roomID string, fn func(room *models.Room) error) (*models.Room, error) {
	var committed *models.Room

	txf := func(tx *redis.Tx) error {
		committed = nil

		meta, err := tx.HGetAll(ctx, roomKey(roomID)).Result()
		if err != nil {
			return err
		}
		if len(meta) == 0 {
			return models.ErrRoomNotFound
		}
		rawPlayers, err := tx.HGetAll(ctx, playersKey(roomID)).Result()
		if err != nil {
			return err
		}

		room, err := decodeRoom(roomID, meta, rawPlayers, s.log)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			if errors.Is(err, ErrNoop) {
				committed = room
			}
			return err
		}

		fields, err := encodeMeta(room)
		if err != nil {
			return err
		}
		// Only the mutable fields are written back.
		mutable := map[string]interface{}{
			fieldStatus:    fields[fieldStatus],
			fieldGameState: fields[fieldGameState],
		}

		keep := make(map[string]string, len(room.Players))
		for _, p := range room.Players {
			raw, err := encodePlayer(p)
			if err != nil {
				return err
			}
			keep[p.ID] = raw
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, roomKey(roomID), mutable)
			for id := range rawPlayers {
				if _, ok := keep[id]; !ok {
					pipe.HDel(ctx, playersKey(roomID), id)
				}
			}
			for id, raw := range keep {
				if rawPlayers[id] != raw {
					pipe.HSet(ctx, playersKey(roomID), id, raw)
				}
			}
			kv.Touch(ctx, pipe, s.ttl, roomKey(roomID), playersKey(roomID), joinKey(room.JoinCode))
			return nil
		})
		if err != nil {
			return err
		}
		committed = room
		return nil
	}

	err := s.kv.Transact(ctx, txf, roomKey(roomID), playersKey(roomID))
	switch {
	case err == nil:
		return committed, nil
	case errors.Is(err, ErrNoop):
		return committed, ErrNoop
	case errors.Is(err, kv.ErrConflict):
		s.log.Error().Str("room_id", roomID).Msg("room update kept conflicting")
		return nil, fmt.Errorf("%w: room %s", models.ErrContention, roomID)
	case models.KindOf(err) != models.KindStore:
		return nil, err
	case errors.Is(err, models.ErrCorruptRoom):
		s.log.Error().Err(err).Str("room_id", roomID).Msg("corrupt room")
		return nil, err
	default:
		s.log.Error().Err(err).Str("room_id", roomID).Msg("room update failed")
		return nil, fmt.Errorf("update room: %w", err)
	}
}
