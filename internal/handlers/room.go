package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/game"
	"github.com/thereayou/hotseat/internal/handlers/dto"
	"github.com/thereayou/hotseat/internal/models"
	"github.com/thereayou/hotseat/internal/rooms"
)

type RoomHandler struct {
	rooms *rooms.Store
	game  *game.Engine
	log   zerolog.Logger
}

func NewRoomHandler(store *rooms.Store, engine *game.Engine, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{rooms: store, game: engine, log: log.With().Str("component", "http").Logger()}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, hostID, err := h.rooms.CreateRoom(c.Request.Context(), req.HostName, req.Settings())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRoomResponse{
		Room:         dto.NewRoomResponse(room),
		HostPlayerID: hostID,
	})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoomByID(c.Request.Context(), c.Param("id"))
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	room, err := h.rooms.GetRoomByJoinCode(c.Request.Context(), c.Param("code"))
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, playerID, err := h.rooms.JoinRoom(c.Request.Context(), req.JoinCode, req.PlayerName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.JoinRoomResponse{
		Room:     dto.NewRoomResponse(room),
		PlayerID: playerID,
	})
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req dto.PlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.rooms.LeaveRoom(c.Request.Context(), c.Param("id"), req.PlayerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.LeaveRoomResponse{Closed: res.Closed, Room: dto.NewRoomResponse(res.Room)})
}

func (h *RoomHandler) KickPlayer(c *gin.Context) {
	var req dto.PlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.rooms.KickPlayer(c.Request.Context(), c.Param("id"), req.PlayerID)
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	room, err := h.rooms.StartGame(c.Request.Context(), c.Param("id"))
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) SubmitPrompt(c *gin.Context) {
	var req dto.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.game.SubmitPrompt(c.Request.Context(), c.Param("id"), req.PlayerID, req.Text)
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) EndTurn(c *gin.Context) {
	ended, err := h.game.EndTurn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.EndTurnResponse{Ended: ended})
}

func (h *RoomHandler) SubmitVote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.game.SubmitVote(c.Request.Context(), c.Param("id"), req.PlayerID, *req.Value)
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) ResetGame(c *gin.Context) {
	room, err := h.game.ResetGame(c.Request.Context(), c.Param("id"))
	h.respondRoom(c, room, err)
}

func (h *RoomHandler) respondRoom(c *gin.Context, room *models.Room, err error) {
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if room == nil {
		respondError(c, h.log, models.ErrRoomNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewRoomResponse(room))
}
