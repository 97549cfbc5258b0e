package main

import (
	"github.com/gin-gonic/gin"

	"github.com/thereayou/hotseat/internal/handlers"
)

type Endpoints struct {
	Rooms     *handlers.RoomHandler
	Results   *handlers.ResultHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler
	RateLimit gin.HandlerFunc
}

func APIEndpoints(r *gin.Engine, e Endpoints) {
	api := r.Group("/api/v1")
	api.GET("/health", e.Health.Health)
	api.GET("/ws", e.WebSocket.HandleWebSocket)

	limited := api.Group("", e.RateLimit)
	{
		limited.GET("/results", e.Results.RecentResults)

		rooms := limited.Group("/rooms")
		rooms.POST("", e.Rooms.CreateRoom)
		rooms.POST("/join", e.Rooms.JoinRoom)
		rooms.GET("/code/:code", e.Rooms.GetRoomByCode)
		rooms.GET("/:id", e.Rooms.GetRoom)
		rooms.POST("/:id/leave", e.Rooms.LeaveRoom)
		rooms.POST("/:id/kick", e.Rooms.KickPlayer)
		rooms.POST("/:id/start", e.Rooms.StartGame)
		rooms.POST("/:id/prompts", e.Rooms.SubmitPrompt)
		rooms.POST("/:id/end-turn", e.Rooms.EndTurn)
		rooms.POST("/:id/votes", e.Rooms.SubmitVote)
		rooms.POST("/:id/reset", e.Rooms.ResetGame)
	}
}
