package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/multilingual"
)

// MetadataResolver surfaces metadata across languages.
type MetadataResolver interface {
	ResolveAll(ctx context.Context, attachmentID, language string) (map[string]multilingual.Resolution, error)
	SuggestNextLanguage(ctx context.Context, attachmentID string) (string, bool, error)
	Chain(language string) []string
}

// MetadataHandler handles metadata resolution endpoints.
type MetadataHandler struct {
	resolver MetadataResolver
	language string
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(resolver MetadataResolver, defaultLanguage string) *MetadataHandler {
	return &MetadataHandler{resolver: resolver, language: defaultLanguage}
}

// Resolve handles GET /api/v1/images/:id/metadata.
func (h *MetadataHandler) Resolve(c *gin.Context) {
	language := c.DefaultQuery("language", h.language)
	fields, err := h.resolver.ResolveAll(c.Request.Context(), c.Param("id"), language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"language": language,
		"chain":    h.resolver.Chain(language),
		"fields":   fields,
	})
}

// SuggestLanguage handles GET /api/v1/images/:id/metadata/next-language.
func (h *MetadataHandler) SuggestLanguage(c *gin.Context) {
	language, ok, err := h.resolver.SuggestNextLanguage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": language, "found": ok})
}
