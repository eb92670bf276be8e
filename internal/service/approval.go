package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
	"github.com/timmy/altseo/internal/logger"
	"gorm.io/gorm"
)

// JobReviewer reads jobs and applies review transitions.
type JobReviewer interface {
	GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error)
	Approve(ctx context.Context, id, reviewer string, at time.Time) (bool, error)
	Reject(ctx context.Context, id, reviewer string) (bool, error)
	Reopen(ctx context.Context, id string, status domain.JobStatus) error
}

// ApprovalService is the manual review flow of jobs.
type ApprovalService struct {
	jobs     JobReviewer
	metadata MetadataWriter
	events   events.Publisher
	now      func() time.Time
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(jobs JobReviewer, metadata MetadataWriter, publisher events.Publisher) *ApprovalService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ApprovalService{jobs: jobs, metadata: metadata, events: publisher, now: time.Now}
}

// Get returns a job or ErrJobNotFound.
func (s *ApprovalService) Get(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
		}
		return nil, err
	}
	return job, nil
}

// Approve applies the generated fields of a job to the live metadata and
// marks the job approved. fields selects a subset; empty means all.
// It returns false when the job was already approved or rejected.
func (s *ApprovalService) Approve(ctx context.Context, jobID, reviewer string, fields []string) (bool, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !job.Reviewable() {
		return false, nil
	}
	if err := checkFields(fields); err != nil {
		return false, err
	}

	resp, err := job.ParsedResponse()
	if err != nil {
		return false, fmt.Errorf("failed to decode job response: %w", err)
	}
	values := selectFields(resp.Fields.Values(), fields)
	if len(values) == 0 {
		return false, fmt.Errorf("job %s has no generated fields to apply: %w", jobID, ErrInvalidField)
	}

	ctx = logger.SetAnalysis(ctx, job.AttachmentID, job.Language)
	ctx = logger.SetJobID(ctx, job.ID)

	// the transition is claimed before any field goes live
	ok, err := s.jobs.Approve(ctx, job.ID, reviewer, s.now())
	if err != nil {
		return false, domain.NewPipelineError(domain.KindPersistence, "approve", err)
	}
	if !ok {
		return false, nil
	}

	s.publish(ctx, job, events.MetadataBeforeApply, map[string]interface{}{"fields": fieldNames(values)})
	if err := s.metadata.SetMany(ctx, job.AttachmentID, liveKeys(values, job.Language)); err != nil {
		if rerr := s.jobs.Reopen(ctx, job.ID, job.Status); rerr != nil {
			logger.FromContext(ctx).WithError(rerr).Error("Failed to reopen job after metadata write failure")
		}
		return false, domain.NewPipelineError(domain.KindPersistence, "approve", err)
	}

	if err := s.metadata.Delete(ctx, job.AttachmentID, draftKeys(fieldNames(values), job.Language)); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to clear drafts")
	}

	logger.FromContext(ctx).WithField(logger.FieldReviewer, reviewer).Info("Job approved")
	s.publish(ctx, job, events.MetadataApplied, map[string]interface{}{"fields": fieldNames(values)})
	s.publish(ctx, job, events.JobApproved, map[string]interface{}{"reviewer": reviewer})
	return true, nil
}

// Reject marks a job skipped and discards its drafts.
func (s *ApprovalService) Reject(ctx context.Context, jobID, reviewer string) (bool, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	ok, err := s.jobs.Reject(ctx, job.ID, reviewer)
	if err != nil || !ok {
		return false, err
	}

	ctx = logger.SetJobID(ctx, job.ID)
	if err := s.metadata.Delete(ctx, job.AttachmentID, draftKeys(domain.MetadataFields, job.Language)); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to clear drafts")
	}
	s.publish(ctx, job, events.JobRejected, map[string]interface{}{"reviewer": reviewer})
	return true, nil
}

func (s *ApprovalService) publish(ctx context.Context, job *domain.AnalysisJob, name string, payload map[string]interface{}) {
	s.events.Publish(ctx, events.Event{
		Name:         name,
		AttachmentID: job.AttachmentID,
		JobID:        job.ID,
		Language:     job.Language,
		Payload:      payload,
	})
}

func checkFields(fields []string) error {
	for _, f := range fields {
		known := false
		for _, m := range domain.MetadataFields {
			if f == m {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%q: %w", f, ErrInvalidField)
		}
	}
	return nil
}

func selectFields(values map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return values
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := values[f]; ok {
			out[f] = v
		}
	}
	return out
}
