package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/handlers/dto"
	"github.com/thereayou/hotseat/internal/models"
	"github.com/thereayou/hotseat/internal/rooms"
	ws "github.com/thereayou/hotseat/internal/websocket"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	rooms    *rooms.Store
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from the given origins. A nil check
// function admits any origin.
func NewWebSocketHandler(hub *ws.Hub, store *rooms.Store, log zerolog.Logger, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub:   hub,
		rooms: store,
		log:   log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWebSocket subscribes the connection to one room. The current room view
// is sent first, then every change.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "roomId is required", Kind: models.KindValidation.String()})
		return
	}

	room, err := h.rooms.GetRoomByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if room == nil {
		respondError(c, h.log, models.ErrRoomNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, roomID, c.Query("playerId"))
	if err := client.SendMessage(ws.TypeRoomUpdated, dto.NewRoomResponse(room)); err != nil {
		h.log.Warn().Err(err).Str("room_id", roomID).Msg("failed to queue room snapshot")
	}
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
