package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs the pipeline of one image.
type Analyzer interface {
	Analyze(ctx context.Context, attachmentID, language string, opts AnalyzeOptions) (*AnalysisOutcome, error)
}

// BulkContextBuilder builds contexts of many images with shared lookups.
type BulkContextBuilder interface {
	BulkBuild(ctx context.Context, attachmentIDs []string, language string) map[string]domain.ImageContext
}

// BatchItem is the result of one image of a batch.
type BatchItem struct {
	AttachmentID string               `json:"attachment_id"`
	JobID        string               `json:"job_id,omitempty"`
	Success      bool                 `json:"success"`
	Skipped      bool                 `json:"skipped,omitempty"`
	Decision     domain.ApplyDecision `json:"decision,omitempty"`
	FinalScore   float64              `json:"final_score"`
	Errors       []string             `json:"errors,omitempty"`
}

// BatchReport summarizes a batch run.
type BatchReport struct {
	BatchID   string      `json:"batch_id"`
	Total     int         `json:"total"`
	Succeeded int64       `json:"succeeded"`
	Failed    int64       `json:"failed"`
	Skipped   int64       `json:"skipped"`
	Items     []BatchItem `json:"items"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
}

// BatchOptions controls a batch run.
type BatchOptions struct {
	Variant domain.PromptVariant
	Trigger domain.Trigger
}

// BatchConfig holds configuration for the batch runner.
type BatchConfig struct {
	Workers      int
	RateLimitRPM int
}

// BatchRunner runs many single-image pipelines concurrently. Failures do
// not stop the batch.
type BatchRunner struct {
	analyzer Analyzer
	contexts BulkContextBuilder
	workers  int
	interval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewBatchRunner creates a BatchRunner. The provider call of the i-th
// item is delayed so that calls start no faster than RateLimitRPM.
func NewBatchRunner(analyzer Analyzer, contexts BulkContextBuilder, cfg *BatchConfig) *BatchRunner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	var interval time.Duration
	if cfg.RateLimitRPM > 0 {
		interval = time.Minute / time.Duration(cfg.RateLimitRPM)
	}
	return &BatchRunner{
		analyzer: analyzer,
		contexts: contexts,
		workers:  workers,
		interval: interval,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Run analyzes every id. Contexts are prebuilt in one bulk pass.
func (b *BatchRunner) Run(ctx context.Context, ids []string, language string, opts BatchOptions) *BatchReport {
	ids = dedupeIDs(ids)
	report := &BatchReport{
		BatchID:   uuid.New().String(),
		Total:     len(ids),
		Items:     make([]BatchItem, len(ids)),
		StartTime: time.Now(),
	}
	ctx = logger.SetBatchID(ctx, report.BatchID)
	ctx = logger.SetComponent(ctx, "batch")
	if opts.Trigger == "" {
		opts.Trigger = domain.TriggerAuto
	}

	stop := b.register(ctx, report.BatchID)
	defer b.unregister(report.BatchID)

	contexts := b.contexts.BulkBuild(ctx, ids, language)

	logger.With(logger.Fields{
		logger.FieldCount:    len(ids),
		logger.FieldLanguage: language,
	}).Info(ctx, "Starting batch analysis")

	skip := func(i int, id string) {
		report.Items[i] = BatchItem{AttachmentID: id, Skipped: true, Errors: []string{"cancelled"}}
		atomic.AddInt64(&report.Skipped, 1)
	}

	var g errgroup.Group
	g.SetLimit(b.workers)

	for i, id := range ids {
		i, id := i, id
		if stop.Err() != nil {
			skip(i, id)
			continue
		}

		g.Go(func() error {
			// an item has not started until its rate-limit slot is reached
			if !b.waitSlot(stop, report.StartTime.Add(time.Duration(i)*b.interval)) {
				skip(i, id)
				return nil
			}

			itemOpts := AnalyzeOptions{Trigger: opts.Trigger, Variant: opts.Variant}
			if c, ok := contexts[id]; ok {
				itemOpts.Context = &c
			}

			outcome, _ := b.analyzer.Analyze(ctx, id, language, itemOpts)
			item := BatchItem{AttachmentID: id, Success: outcome.Success, Decision: outcome.Decision, Errors: outcome.Errors}
			if outcome.Job != nil {
				item.JobID = outcome.Job.ID
				item.FinalScore = outcome.Job.FinalScore
			}
			report.Items[i] = item
			if outcome.Success {
				atomic.AddInt64(&report.Succeeded, 1)
			} else {
				atomic.AddInt64(&report.Failed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.EndTime = time.Now()
	logger.With(logger.Fields{
		"succeeded":            report.Succeeded,
		"failed":               report.Failed,
		"skipped":              report.Skipped,
		logger.FieldDurationMs: report.EndTime.Sub(report.StartTime).Milliseconds(),
	}).Info(ctx, "Batch analysis completed")
	return report
}

// CancelAll stops every running batch. Items already started run to
// completion; the rest, including items waiting for their rate-limit
// slot, are reported as skipped.
func (b *BatchRunner) CancelAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.cancels)
	for id, cancel := range b.cancels {
		cancel()
		delete(b.cancels, id)
	}
	return n
}

// register returns a context that is done when the batch is cancelled or
// the caller's context ends. Only waiting items observe it.
func (b *BatchRunner) register(ctx context.Context, id string) context.Context {
	stop, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels[id] = cancel
	b.mu.Unlock()
	return stop
}

func (b *BatchRunner) unregister(id string) {
	b.mu.Lock()
	if cancel, ok := b.cancels[id]; ok {
		cancel()
		delete(b.cancels, id)
	}
	b.mu.Unlock()
}

// waitSlot blocks until at, reporting false when stop ends first.
func (b *BatchRunner) waitSlot(stop context.Context, at time.Time) bool {
	d := time.Until(at)
	if d <= 0 {
		return stop.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return stop.Err() == nil
	case <-stop.Done():
		return false
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
