package handler

import (
	"net/http"

	"propsearch/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError writes err as a JSON error body with its mapped status
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
