package handler

import (
	"net/http"
	"strconv"

	"propsearch/internal/model"
	"propsearch/internal/service"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 100

// HistoryHandler serves a caller's search history
type HistoryHandler struct {
	searchService *service.SearchService
	defaultLimit  int
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(searchService *service.SearchService, defaultLimit int) *HistoryHandler {
	if defaultLimit <= 0 || defaultLimit > maxHistoryLimit {
		defaultLimit = 20
	}
	return &HistoryHandler{
		searchService: searchService,
		defaultLimit:  defaultLimit,
	}
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	identity := identityFromRequest(c)
	if identity == nil || identity.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing " + HeaderUserID + " header"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.searchService.RecentHistory(c.Request.Context(), identity.UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.HistoryResponse{Entries: entries})
}
