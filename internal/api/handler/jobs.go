package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/repository"
)

// JobLister pages through the job ledger.
type JobLister interface {
	List(ctx context.Context, f repository.JobFilter) ([]domain.AnalysisJob, int64, error)
}

// Reviewer is the manual review flow.
type Reviewer interface {
	Get(ctx context.Context, jobID string) (*domain.AnalysisJob, error)
	Approve(ctx context.Context, jobID, reviewer string, fields []string) (bool, error)
	Reject(ctx context.Context, jobID, reviewer string) (bool, error)
}

// StatsProvider aggregates the ledger by period.
type StatsProvider interface {
	GetStats(ctx context.Context, period string) (*domain.JobStats, error)
}

// JobHandler handles job ledger and review endpoints.
type JobHandler struct {
	jobs     JobLister
	reviewer Reviewer
	stats    StatsProvider
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs JobLister, reviewer Reviewer, stats StatsProvider) *JobHandler {
	return &JobHandler{jobs: jobs, reviewer: reviewer, stats: stats}
}

// ApproveRequest selects the fields to apply; empty applies all.
type ApproveRequest struct {
	Fields []string `json:"fields"`
}

// ListJobsResponse is a page of jobs.
type ListJobsResponse struct {
	Jobs  []domain.AnalysisJob `json:"jobs"`
	Total int64                `json:"total"`
}

// ListJobs handles GET /api/v1/jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, total, err := h.jobs.List(c.Request.Context(), repository.JobFilter{
		Status:       domain.JobStatus(c.Query("status")),
		AttachmentID: c.Query("attachment_id"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListJobsResponse{Jobs: jobs, Total: total})
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.reviewer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ApproveJob handles POST /api/v1/jobs/:id/approve.
// approved is false when the job was already reviewed.
func (h *JobHandler) ApproveJob(c *gin.Context) {
	var req ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ok, err := h.reviewer.Approve(c.Request.Context(), c.Param("id"), middleware.GetReviewer(c), req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": ok})
}

// RejectJob handles POST /api/v1/jobs/:id/reject.
func (h *JobHandler) RejectJob(c *gin.Context) {
	ok, err := h.reviewer.Reject(c.Request.Context(), c.Param("id"), middleware.GetReviewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": ok})
}

// GetStats handles GET /api/v1/stats.
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context(), c.DefaultQuery("period", "all"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
