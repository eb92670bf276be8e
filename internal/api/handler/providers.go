package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/provider"
)

// ProviderRegistry reports and checks providers.
type ProviderRegistry interface {
	Statuses() []provider.Status
	TestConnection(ctx context.Context, name string) error
}

// PriceSyncer refreshes the pricing table.
type PriceSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// ProviderHandler handles provider and pricing endpoints.
type ProviderHandler struct {
	registry ProviderRegistry
	syncer   PriceSyncer
}

// NewProviderHandler creates a new provider handler.
func NewProviderHandler(registry ProviderRegistry, syncer PriceSyncer) *ProviderHandler {
	return &ProviderHandler{registry: registry, syncer: syncer}
}

// ListProviders handles GET /api/v1/providers.
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.registry.Statuses()})
}

// TestProvider handles POST /api/v1/providers/:name/test.
func (h *ProviderHandler) TestProvider(c *gin.Context) {
	name := c.Param("name")
	if err := h.registry.TestConnection(c.Request.Context(), name); err != nil {
		logger.CtxWarn(c.Request.Context(), "Provider connection test failed: provider=%s, error=%v", name, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": name, "ok": true})
}

// SyncPricing handles POST /api/v1/pricing/sync.
func (h *ProviderHandler) SyncPricing(c *gin.Context) {
	n, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
