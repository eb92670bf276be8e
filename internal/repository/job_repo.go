package repository

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
)

// JobRepository is the append-only analysis job ledger.
type JobRepository struct {
	db *gorm.DB
}

// JobFilter narrows job listings.
type JobFilter struct {
	Status       domain.JobStatus
	AttachmentID string
	Limit        int
	Offset       int
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JobRepository) Create(ctx context.Context, job *domain.AnalysisJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.AnalysisJob: job record if found.
//   - error: gorm.ErrRecordNotFound if missing.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns jobs matching the filter, newest first, plus the total count.
func (r *JobRepository) List(ctx context.Context, f JobFilter) ([]domain.AnalysisJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.AnalysisJob{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.AttachmentID != "" {
		query = query.Where("attachment_id = ?", f.AttachmentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var jobs []domain.AnalysisJob
	if err := query.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Approve moves a pending or processed job to approved.
// Returns false when the job is missing or already in a final state.
func (r *JobRepository) Approve(ctx context.Context, id, reviewer string, at time.Time) (bool, error) {
	return r.transition(ctx, id, domain.JobStatusApproved, map[string]interface{}{
		"approved_at": at,
		"approved_by": reviewer,
	})
}

// Reject moves a pending or processed job to skipped.
func (r *JobRepository) Reject(ctx context.Context, id, reviewer string) (bool, error) {
	return r.transition(ctx, id, domain.JobStatusSkipped, map[string]interface{}{
		"approved_by": reviewer,
	})
}

// Reopen moves an approved job back to status, clearing the approval.
// Used when applying its fields failed after the approval was claimed.
func (r *JobRepository) Reopen(ctx context.Context, id string, status domain.JobStatus) error {
	return r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusApproved).
		Updates(map[string]interface{}{
			"status":      status,
			"approved_at": nil,
			"approved_by": "",
		}).Error
}

// transition applies a status change only from an open state, so that
// concurrent approvals cannot both succeed.
func (r *JobRepository) transition(ctx context.Context, id string, to domain.JobStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessed}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetDecision records a changed apply decision.
func (r *JobRepository) SetDecision(ctx context.Context, id string, decision domain.ApplyDecision) error {
	return r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).
		Where("id = ?", id).
		Update("decision", decision).Error
}

type statsRow struct {
	Status     domain.JobStatus
	TotalCost  decimal.Decimal
	FinalScore float64
}

// Stats aggregates jobs created since the given time; nil means all time.
// The average score covers jobs that produced a score.
func (r *JobRepository) Stats(ctx context.Context, since *time.Time) (*domain.JobStats, error) {
	query := r.db.WithContext(ctx).Model(&domain.AnalysisJob{}).Select("status", "total_cost", "final_score")
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var rows []statsRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := &domain.JobStats{TotalCost: decimal.Zero}
	var (
		scoreSum float64
		scored   int
	)
	for _, row := range rows {
		switch row.Status {
		case domain.JobStatusPending:
			stats.Pending++
		case domain.JobStatusProcessed:
			stats.Processing++
		case domain.JobStatusApproved:
			stats.Approved++
		case domain.JobStatusFailed:
			stats.Failed++
		case domain.JobStatusSkipped:
			stats.Skipped++
		}
		stats.TotalCost = stats.TotalCost.Add(row.TotalCost)
		if row.Status != domain.JobStatusFailed {
			scoreSum += row.FinalScore
			scored++
		}
	}
	if scored > 0 {
		stats.AvgScore = math.Round(scoreSum/float64(scored)*100) / 100
	}
	return stats, nil
}
