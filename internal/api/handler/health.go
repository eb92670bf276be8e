package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a backing dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        Pinger
	providers ProviderRegistry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, providers ProviderRegistry) *HealthHandler {
	return &HealthHandler{db: db, providers: providers}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	database := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			database = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	configured := 0
	if h.providers != nil {
		for _, s := range h.providers.Statuses() {
			if s.Configured {
				configured++
			}
		}
	}

	c.JSON(code, gin.H{
		"status":               status,
		"database":             database,
		"configured_providers": configured,
	})
}
