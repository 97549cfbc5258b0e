// Package events announces committed room changes to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/hotseat/internal/kv"
	"github.com/thereayou/hotseat/internal/models"
)

type EventType string

const (
	TypeRoomUpdated EventType = "room_updated"
	TypeRoomClosed  EventType = "room_closed"
)

// ChannelPrefix is followed by the room id. Every room has its own channel.
const ChannelPrefix = "room-events:"

func Channel(roomID string) string {
	return ChannelPrefix + roomID
}

// RoomIDFromChannel is the inverse of Channel.
func RoomIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, ChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, ChannelPrefix), true
}

type Envelope struct {
	Type      EventType    `json:"type"`
	RoomID    string       `json:"room_id"`
	Room      *models.Room `json:"room,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Notifier is best effort: a failed announcement never undoes the write it describes.
type Notifier interface {
	AnnounceRoomUpdated(ctx context.Context, room *models.Room) error
	AnnounceRoomClosed(ctx context.Context, roomID string) error
}

// RedisNotifier publishes envelopes over Redis pub/sub so every server
// instance can fan them out to its own websocket clients.
type RedisNotifier struct {
	kv *kv.Client
}

func NewRedisNotifier(c *kv.Client) *RedisNotifier {
	return &RedisNotifier{kv: c}
}

func (n *RedisNotifier) AnnounceRoomUpdated(ctx context.Context, room *models.Room) error {
	if room == nil || room.ID == "" {
		return nil
	}
	return n.publish(ctx, Envelope{Type: TypeRoomUpdated, RoomID: room.ID, Room: room, Timestamp: time.Now()})
}

func (n *RedisNotifier) AnnounceRoomClosed(ctx context.Context, roomID string) error {
	return n.publish(ctx, Envelope{Type: TypeRoomClosed, RoomID: roomID, Timestamp: time.Now()})
}

func (n *RedisNotifier) publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	if err := n.kv.Publish(ctx, Channel(env.RoomID), data); err != nil {
		return fmt.Errorf("publish %s for room %s: %w", env.Type, env.RoomID, err)
	}
	return nil
}

// Decode parses a payload received from a room channel.
func Decode(payload string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
