package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/service"
)

// BatchRunner runs and cancels bulk analyses.
type BatchRunner interface {
	Run(ctx context.Context, ids []string, language string, opts service.BatchOptions) *service.BatchReport
	CancelAll() int
}

// MissingAltLister finds attachments without alt text.
type MissingAltLister interface {
	ListAttachmentsMissingMeta(ctx context.Context, key string, limit int) ([]string, error)
}

// BatchHandler handles bulk analysis. One batch runs at a time.
type BatchHandler struct {
	runner   BatchRunner
	missing  MissingAltLister
	language string

	mu            sync.RWMutex
	isRunning     bool
	lastReport    *service.BatchReport
	lastRunTime   time.Time
	lastRunStatus string
}

// NewBatchHandler creates a new batch handler.
// Parameters:
//   - runner: batch runner.
//   - missing: lookup for the missing_alt selection, may be nil.
//   - defaultLanguage: language used when a request names none.
// Returns:
//   - *BatchHandler: initialized handler.
func NewBatchHandler(runner BatchRunner, missing MissingAltLister, defaultLanguage string) *BatchHandler {
	return &BatchHandler{runner: runner, missing: missing, language: defaultLanguage}
}

// BatchRequest represents the batch API request. Either IDs or
// MissingAlt selects the attachments.
type BatchRequest struct {
	IDs        []string `json:"ids"`
	MissingAlt int      `json:"missing_alt" binding:"omitempty,min=1,max=10000"`
	Language   string   `json:"language"`
	Variant    string   `json:"variant"`
}

// BatchStatusResponse represents the batch status.
type BatchStatusResponse struct {
	IsRunning     bool                 `json:"is_running"`
	LastRunTime   string               `json:"last_run_time,omitempty"`
	LastRunStatus string               `json:"last_run_status,omitempty"`
	LastReport    *service.BatchReport `json:"last_report,omitempty"`
}

// RunBatch handles POST /api/v1/batch.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *BatchHandler) RunBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid batch request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	variant, ok := parseVariant(c, req.Variant)
	if !ok {
		return
	}

	if req.Language == "" {
		req.Language = h.language
	}

	ids := req.IDs
	if len(ids) == 0 && req.MissingAlt > 0 && h.missing != nil {
		found, err := h.missing.ListAttachmentsMissingMeta(ctx, domain.MetaKey(domain.MetaAlt, req.Language), req.MissingAlt)
		if err != nil {
			respondError(c, err)
			return
		}
		ids = found
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no attachments selected"})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Batch request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": "A batch is already running"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	// the batch outlives a client disconnect
	report := h.runner.Run(context.WithoutCancel(ctx), ids, req.Language, service.BatchOptions{Variant: variant})

	h.mu.Lock()
	h.isRunning = false
	h.lastReport = report
	h.lastRunTime = time.Now()
	h.lastRunStatus = "completed"
	if report.Skipped > 0 {
		h.lastRunStatus = "cancelled"
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, report)
}

// GetBatchStatus handles GET /api/v1/batch/status.
func (h *BatchHandler) GetBatchStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := BatchStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastReport:    h.lastReport,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// CancelBatch handles POST /api/v1/batch/cancel.
func (h *BatchHandler) CancelBatch(c *gin.Context) {
	n := h.runner.CancelAll()
	logger.CtxInfo(c.Request.Context(), "Batch cancel requested: cancelled=%d", n)
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}
