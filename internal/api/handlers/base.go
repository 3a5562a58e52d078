package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/dto"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteError aborts the request with an error response.
func (b *Base) WriteError(c *gin.Context, status int, err dto.APIError) {
	c.AbortWithStatusJSON(status, err)
}
