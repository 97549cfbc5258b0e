package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/handlers/dto"
	"github.com/thereayou/hotseat/internal/models"
)

type ResultLister interface {
	RecentResults(ctx context.Context, limit int) ([]models.GameResult, error)
}

type ResultHandler struct {
	results ResultLister
	log     zerolog.Logger
}

// NewResultHandler accepts a nil lister when no archive is configured.
func NewResultHandler(results ResultLister, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{results: results, log: log}
}

func (h *ResultHandler) RecentResults(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "results archive is not configured", Kind: models.KindStore.String()})
		return
	}

	limit := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			badRequest(c, err)
			return
		}
		limit = parsed
	}

	results, err := h.results.RecentResults(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]dto.ResultResponse, len(results))
	for i, r := range results {
		out[i] = dto.NewResultResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
