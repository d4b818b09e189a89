package handler

import (
	"net/http"
	"strconv"
	"strings"

	"propsearch/internal/apperr"
	"propsearch/internal/model"
	"propsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream auth layer
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search handles GET and POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sortByMatch, err := parseSort(req.Sort)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), service.SearchParams{
		Query:       req.Query,
		Type:        req.Type,
		Identity:    identityFromRequest(c),
		SortByMatch: sortByMatch,
		Explain:     req.Explain,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetListing handles GET /api/v1/listings/:variant/:id
func (h *SearchHandler) GetListing(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	listing, err := h.searchService.GetListing(c.Request.Context(), c.Param("variant"), listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func parseSort(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, nil
	case "match":
		return true, nil
	}
	return false, apperr.InvalidInput("sort must be match or omitted")
}

// identityFromRequest returns the caller identity forwarded by the auth
// layer, or nil for anonymous requests
func identityFromRequest(c *gin.Context) *model.Identity {
	userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
	email := strings.TrimSpace(c.GetHeader(HeaderUserEmail))
	if userID == "" && email == "" {
		return nil
	}
	return &model.Identity{UserID: userID, Email: email}
}
