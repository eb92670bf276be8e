package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/prompts"
	"github.com/timmy/altseo/internal/service"
)

// Previewer shows contexts and prompts without a provider call.
type Previewer interface {
	PreviewContext(ctx context.Context, attachmentID, language string) (*service.ContextPreview, error)
	PreviewPrompt(ctx context.Context, attachmentID, language string, variant domain.PromptVariant) (*prompts.Prompt, error)
}

// AnalysisHandler handles preview and single-image analysis endpoints.
type AnalysisHandler struct {
	preview  Previewer
	analyzer service.Analyzer
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(preview Previewer, analyzer service.Analyzer) *AnalysisHandler {
	return &AnalysisHandler{preview: preview, analyzer: analyzer}
}

// AnalyzeRequest is the body of POST /images/:id/analyze.
type AnalyzeRequest struct {
	Language string `json:"language"`
	Variant  string `json:"variant"`
	Trigger  string `json:"trigger" binding:"omitempty,oneof=auto manual"`
}

// PromptPreviewResponse is the rendered prompt of an image.
type PromptPreviewResponse struct {
	Prompt      string               `json:"prompt"`
	UsedVariant domain.PromptVariant `json:"used_variant"`
	Version     string               `json:"version"`
}

// PreviewContext handles GET /api/v1/images/:id/context.
func (h *AnalysisHandler) PreviewContext(c *gin.Context) {
	preview, err := h.preview.PreviewContext(c.Request.Context(), c.Param("id"), c.Query("language"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// PreviewPrompt handles GET /api/v1/images/:id/prompt.
func (h *AnalysisHandler) PreviewPrompt(c *gin.Context) {
	variant, ok := parseVariant(c, c.Query("variant"))
	if !ok {
		return
	}
	p, err := h.preview.PreviewPrompt(c.Request.Context(), c.Param("id"), c.Query("language"), variant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PromptPreviewResponse{Prompt: p.Text, UsedVariant: p.Variant, Version: p.Version})
}

// Analyze handles POST /api/v1/images/:id/analyze.
// Failed runs answer with the outcome (success=false and its errors)
// under the status of the failure kind.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	variant, ok := parseVariant(c, req.Variant)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	logger.CtxInfo(ctx, "Analysis requested: attachment_id=%s, language=%s, client_ip=%s", id, req.Language, c.ClientIP())

	outcome, err := h.analyzer.Analyze(ctx, id, req.Language, service.AnalyzeOptions{
		Trigger: domain.Trigger(req.Trigger),
		Variant: variant,
	})
	if err != nil {
		c.JSON(statusFor(err), outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func parseVariant(c *gin.Context, raw string) (domain.PromptVariant, bool) {
	v := domain.PromptVariant(raw)
	if v != "" && !v.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant: " + raw})
		return "", false
	}
	return v, true
}
