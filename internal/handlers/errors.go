package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thereayou/hotseat/internal/handlers/dto"
	"github.com/thereayou/hotseat/internal/models"
)

func statusFor(kind models.Kind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindPhase, models.KindCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status of its kind. Store failures are
// logged and their details kept from the client.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		ev := log.Error().Err(err).Str("path", c.FullPath())
		if id := c.Param("id"); id != "" {
			ev = ev.Str("room_id", id)
		}
		ev.Msg("request failed")
		msg = "internal error"
		if errors.Is(err, models.ErrContention) {
			status = http.StatusServiceUnavailable
			msg = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg, Kind: kind.String()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: err.Error(),
		Kind:  models.KindValidation.String(),
	})
}
