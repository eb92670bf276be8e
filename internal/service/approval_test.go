package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
)

// pendingJob runs a manual low-score analysis, leaving a pending job.
func pendingJob(t *testing.T, h *harness) *domain.AnalysisJob {
	t.Helper()
	h.invoker.fields = domain.GeneratedFields{
		Alt:     goodAlt,
		Caption: "The sun sets slowly over a calm and empty beach",
	}
	outcome, err := h.orch.Analyze(context.Background(), "att-1", "en", AnalyzeOptions{Trigger: domain.TriggerManual})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if outcome.Job.Status != domain.JobStatusPending {
		t.Fatalf("expected pending job, got %s", outcome.Job.Status)
	}
	return outcome.Job
}

func TestApprovalApproveOnce(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	job := pendingJob(t, h)
	h.meta.values["att-1"] = map[string]string{"draft_alt_en": "stale draft"}

	publisher := &recordingPublisher{}
	svc := NewApprovalService(h.jobs, h.meta, publisher)

	ok, err := svc.Approve(context.Background(), job.ID, "editor", nil)
	if err != nil || !ok {
		t.Fatalf("expected approval, got %v/%v", ok, err)
	}
	if got := h.meta.get("att-1", "alt_en"); got != goodAlt {
		t.Errorf("expected live alt, got %q", got)
	}
	if h.meta.get("att-1", "caption_en") == "" {
		t.Errorf("expected caption to be applied")
	}
	if got := h.meta.get("att-1", "draft_alt_en"); got != "" {
		t.Errorf("expected draft cleared, got %q", got)
	}

	stored, _ := h.jobs.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusApproved || stored.ApprovedBy != "editor" || stored.ApprovedAt == nil {
		t.Errorf("unexpected job after approval: %+v", stored)
	}

	want := []string{events.MetadataBeforeApply, events.MetadataApplied, events.JobApproved}
	if got := publisher.names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected events %v, got %v", want, got)
	}

	ok, err = svc.Approve(context.Background(), job.ID, "someone-else", nil)
	if err != nil || ok {
		t.Errorf("expected second approval to be a no-op, got %v/%v", ok, err)
	}
	stored, _ = h.jobs.GetByID(context.Background(), job.ID)
	if stored.ApprovedBy != "editor" {
		t.Errorf("expected original reviewer kept, got %q", stored.ApprovedBy)
	}
}

func TestApprovalFieldSubset(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	job := pendingJob(t, h)
	svc := NewApprovalService(h.jobs, h.meta, nil)

	if _, err := svc.Approve(context.Background(), job.ID, "editor", []string{"alt"}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if h.meta.get("att-1", "alt_en") == "" {
		t.Errorf("expected alt applied")
	}
	if got := h.meta.get("att-1", "caption_en"); got != "" {
		t.Errorf("expected caption not applied, got %q", got)
	}
}

func TestApprovalErrors(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	job := pendingJob(t, h)
	svc := NewApprovalService(h.jobs, h.meta, nil)

	tests := []struct {
		name   string
		jobID  string
		fields []string
		want   error
	}{
		{"unknown job", "missing", nil, ErrJobNotFound},
		{"unknown field", job.ID, []string{"alt", "description"}, ErrInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Approve(context.Background(), tt.jobID, "editor", tt.fields)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestApprovalReject(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	outcome, _ := h.orch.Analyze(context.Background(), "att-1", "en", AnalyzeOptions{Trigger: domain.TriggerAuto})
	if outcome.Decision != domain.DecisionDraft {
		t.Fatalf("expected draft, got %s", outcome.Decision)
	}

	publisher := &recordingPublisher{}
	svc := NewApprovalService(h.jobs, h.meta, publisher)

	ok, err := svc.Reject(context.Background(), outcome.Job.ID, "editor")
	if err != nil || !ok {
		t.Fatalf("expected rejection, got %v/%v", ok, err)
	}
	if got := h.meta.get("att-1", "draft_alt_en"); got != "" {
		t.Errorf("expected draft discarded, got %q", got)
	}
	stored, _ := h.jobs.GetByID(context.Background(), outcome.Job.ID)
	if stored.Status != domain.JobStatusSkipped {
		t.Errorf("expected skipped, got %s", stored.Status)
	}
	if names := publisher.names(); len(names) != 1 || names[0] != events.JobRejected {
		t.Errorf("expected job.rejected, got %v", names)
	}

	if ok, _ := svc.Approve(context.Background(), outcome.Job.ID, "editor", nil); ok {
		t.Errorf("expected rejected job not to be approvable")
	}
}

func TestApprovalOfFailedJob(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.9)
	h.invoker.score = nil
	outcome, _ := h.orch.Analyze(context.Background(), "att-1", "en", AnalyzeOptions{})

	svc := NewApprovalService(h.jobs, h.meta, nil)
	ok, err := svc.Approve(context.Background(), outcome.Job.ID, "editor", nil)
	if err != nil || ok {
		t.Errorf("expected failed job not to be approvable, got %v/%v", ok, err)
	}
}

// rejectFirstJobs lets a reject land between the review check and the
// approval transition.
type rejectFirstJobs struct {
	*fakeJobs
}

func (r rejectFirstJobs) Approve(ctx context.Context, id, reviewer string, at time.Time) (bool, error) {
	if _, err := r.fakeJobs.Reject(ctx, id, "other-editor"); err != nil {
		return false, err
	}
	return r.fakeJobs.Approve(ctx, id, reviewer, at)
}

func TestApprovalLosingToRejectWritesNothing(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	job := pendingJob(t, h)
	publisher := &recordingPublisher{}
	svc := NewApprovalService(rejectFirstJobs{h.jobs}, h.meta, publisher)

	ok, err := svc.Approve(context.Background(), job.ID, "editor", nil)
	if err != nil || ok {
		t.Fatalf("expected approval to lose, got %v/%v", ok, err)
	}
	for _, key := range []string{"alt_en", "caption_en"} {
		if got := h.meta.get("att-1", key); got != "" {
			t.Errorf("expected %s not written, got %q", key, got)
		}
	}
	if stored, _ := h.jobs.GetByID(context.Background(), job.ID); stored.Status != domain.JobStatusSkipped {
		t.Errorf("expected job to stay rejected, got %s", stored.Status)
	}
	if names := publisher.names(); len(names) != 0 {
		t.Errorf("expected no events, got %v", names)
	}
}

func TestApprovalMetadataFailureReopensJob(t *testing.T) {
	h := newHarness(config.DefaultSettings(), 0.2)
	job := pendingJob(t, h)
	svc := NewApprovalService(h.jobs, h.meta, nil)

	h.meta.setErr = errBoom
	ok, err := svc.Approve(context.Background(), job.ID, "editor", nil)
	if ok || !domain.IsKind(err, domain.KindPersistence) {
		t.Fatalf("expected persistence error, got %v/%v", ok, err)
	}
	stored, _ := h.jobs.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusPending || stored.ApprovedBy != "" || stored.ApprovedAt != nil {
		t.Errorf("expected job reopened as pending, got %s by %q", stored.Status, stored.ApprovedBy)
	}

	h.meta.setErr = nil
	if ok, err := svc.Approve(context.Background(), job.ID, "editor", nil); err != nil || !ok {
		t.Errorf("expected retry to approve, got %v/%v", ok, err)
	}
}
