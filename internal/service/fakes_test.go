package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
	"github.com/timmy/altseo/internal/provider"
	"gorm.io/gorm"
)

const goodAlt = "Golden sunset over a quiet sandy beach with gentle waves"

type fakeImages struct {
	err   error
	calls int
}

func (f *fakeImages) Load(_ context.Context, id string) (*domain.ImagePayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImagePayload{AttachmentID: id, Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}, nil
}

type fakeContexts struct {
	ctx domain.ImageContext
}

func (f *fakeContexts) Build(_ context.Context, id, language string) domain.ImageContext {
	c := f.ctx
	c.AttachmentID, c.Language = id, language
	return c
}

func (f *fakeContexts) BulkBuild(ctx context.Context, ids []string, language string) map[string]domain.ImageContext {
	out := make(map[string]domain.ImageContext, len(ids))
	for _, id := range ids {
		out[id] = f.Build(ctx, id, language)
	}
	return out
}

// richContext has a completeness score of 0.8.
func richContext() domain.ImageContext {
	return domain.ImageContext{
		SiteTopic:      "Travel blog",
		PostTitle:      "Summer on the coast",
		PostExcerpt:    "A week by the sea",
		PostCategories: []string{"Travel"},
		PostTags:       []string{"beach"},
		FilenameHint:   "sunset beach",
	}
}

type fakeInvoker struct {
	mu      sync.Mutex
	fields  domain.GeneratedFields
	score   *float64
	err     error
	errors  map[string]string
	calls   int
	prompts []string
}

func scorePtr(v float64) *float64 { return &v }

func (f *fakeInvoker) InvokeWithFallback(_ context.Context, req *provider.Request) (*provider.FallbackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return &provider.FallbackResult{Errors: f.errors}, f.err
	}
	return &provider.FallbackResult{
		Success:  true,
		Provider: "openai",
		Errors:   f.errors,
		Result: &domain.AnalysisResult{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Fields:   f.fields,
			Score:    f.score,
			Usage:    domain.TokenUsage{InputTokens: 1000, OutputTokens: 100},
		},
	}, nil
}

type fakePricing struct{}

func (fakePricing) Cost(_ string, usage domain.TokenUsage) domain.Costs {
	in := decimal.NewFromInt(int64(usage.InputTokens)).Div(decimal.NewFromInt(1_000_000))
	out := decimal.NewFromInt(int64(usage.OutputTokens)).Div(decimal.NewFromInt(1_000_000))
	return domain.Costs{Input: in, Output: out, Total: in.Add(out)}
}

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]*domain.AnalysisJob
	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*domain.AnalysisJob)}
}

func (f *fakeJobs) Create(_ context.Context, job *domain.AnalysisJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*domain.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) transition(id string, to domain.JobStatus, reviewer string, at *time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || !job.Reviewable() {
		return false
	}
	job.Status = to
	job.ApprovedBy = reviewer
	job.ApprovedAt = at
	return true
}

func (f *fakeJobs) Approve(_ context.Context, id, reviewer string, at time.Time) (bool, error) {
	return f.transition(id, domain.JobStatusApproved, reviewer, &at), nil
}

func (f *fakeJobs) Reopen(_ context.Context, id string, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok && job.Status == domain.JobStatusApproved {
		job.Status, job.ApprovedBy, job.ApprovedAt = status, "", nil
	}
	return nil
}

func (f *fakeJobs) Reject(_ context.Context, id, reviewer string) (bool, error) {
	return f.transition(id, domain.JobStatusSkipped, reviewer, nil), nil
}

func (f *fakeJobs) SetDecision(_ context.Context, id string, decision domain.ApplyDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Decision = decision
	}
	return nil
}

func (f *fakeJobs) only() *domain.AnalysisJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		return j
	}
	return nil
}

type fakeMetadata struct {
	mu     sync.Mutex
	values map[string]map[string]string
	setErr error
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{values: make(map[string]map[string]string)}
}

func (f *fakeMetadata) SetMany(_ context.Context, id string, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	m, ok := f.values[id]
	if !ok {
		m = make(map[string]string)
		f.values[id] = m
	}
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func (f *fakeMetadata) Delete(_ context.Context, id string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values[id], k)
	}
	return nil
}

func (f *fakeMetadata) get(id, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[id][key]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

var errBoom = errors.New("boom")
