package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/dto"
)

// SchemaVersioner reports the applied migration version of the store
type SchemaVersioner interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	store SchemaVersioner // Optional
}

// NewHealthHandler creates a health handler. When store is nil the check
// only reports that the process is up.
func NewHealthHandler(store SchemaVersioner) *HealthHandler {
	return &HealthHandler{store: store}
}

// Get handles GET /health.
func (h *HealthHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, dto.NewHealthResponse(0))
		return
	}

	version, err := h.store.SchemaVersion(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.APIError{
			Code:    dto.ErrCodeUnavailable,
			Message: "database unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, dto.NewHealthResponse(version))
}
