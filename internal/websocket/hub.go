package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/events"
	"github.com/thereayou/hotseat/internal/handlers/dto"
	"github.com/thereayou/hotseat/internal/kv"
)

type MessageType string

const (
	TypePing        MessageType = "ping"
	TypeRoomUpdated MessageType = MessageType(events.TypeRoomUpdated)
	TypeRoomClosed  MessageType = MessageType(events.TypeRoomClosed)
)

// Message is the frame sent to subscribers. Data holds the public room view for
// room_updated frames.
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub fans room events from Redis out to the websocket clients connected to
// this instance. Each room's clients only see their room.
type Hub struct {
	clients map[uuid.UUID]*Client
	rooms   map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan events.Envelope

	log          zerolog.Logger
	pingInterval time.Duration

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[uuid.UUID]*Client),
		rooms:        make(map[string]map[uuid.UUID]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan events.Envelope, 64),
		log:          log.With().Str("component", "hub").Logger(),
		pingInterval: 30 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Listen forwards every room event published on Redis to the hub until ctx is
// done. It returns once the subscription is confirmed so callers know no event
// published afterwards is missed.
func (h *Hub) Listen(ctx context.Context, c *kv.Client) error {
	sub := c.PSubscribe(ctx, events.ChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := events.Decode(msg.Payload)
				if err != nil {
					h.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
					continue
				}
				h.Publish(env)
			}
		}
	}()
	return nil
}

// Publish hands an event to the hub loop.
func (h *Hub) Publish(env events.Envelope) {
	select {
	case h.broadcast <- env:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// RoomClients reports how many clients of this instance watch the room.
func (h *Hub) RoomClients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if _, ok := h.rooms[client.RoomID]; !ok {
		h.rooms[client.RoomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[client.RoomID][client.ID] = client

	h.log.Debug().Str("client_id", client.ID.String()).Str("room_id", client.RoomID).Msg("client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropUnsafe(client)
}

func (h *Hub) dropUnsafe(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if room, ok := h.rooms[client.RoomID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)

	h.log.Debug().Str("client_id", client.ID.String()).Str("room_id", client.RoomID).Msg("client unregistered")
}

func (h *Hub) deliver(env events.Envelope) {
	msg := Message{
		Type:      MessageType(env.Type),
		RoomID:    env.RoomID,
		Timestamp: env.Timestamp,
	}
	if env.Room != nil {
		data, err := json.Marshal(dto.NewRoomResponse(env.Room))
		if err != nil {
			h.log.Error().Err(err).Str("room_id", env.RoomID).Msg("failed to render room")
			return
		}
		msg.Data = data
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", env.RoomID).Msg("failed to encode frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.rooms[env.RoomID] {
		select {
		case client.Send <- frame:
		default:
			h.log.Warn().Str("client_id", client.ID.String()).Msg("client send queue full")
		}
	}

	if env.Type == events.TypeRoomClosed {
		for _, client := range h.rooms[env.RoomID] {
			h.dropUnsafe(client)
		}
	}
}

func (h *Hub) ping() {
	frame, err := json.Marshal(Message{Type: TypePing, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- frame:
		default:
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		h.dropUnsafe(client)
	}
}
