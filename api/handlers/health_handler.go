package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdl-relay/internal/app"
)

// Version is reported by /health
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	store *app.SessionStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *app.SessionStore) *HealthHandler {
	return &HealthHandler{
		store: store,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: h.store.Len(),
	})
}
