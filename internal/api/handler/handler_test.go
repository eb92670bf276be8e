package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/multilingual"
	"github.com/timmy/altseo/internal/pricing"
	"github.com/timmy/altseo/internal/prompts"
	"github.com/timmy/altseo/internal/provider"
	"github.com/timmy/altseo/internal/repository"
	"github.com/timmy/altseo/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"image not found", fmt.Errorf("7: %w", service.ErrImageNotFound), http.StatusNotFound},
		{"job not found", fmt.Errorf("x: %w", service.ErrJobNotFound), http.StatusNotFound},
		{"unknown provider", fmt.Errorf("foo: %w", provider.ErrUnknownProvider), http.StatusNotFound},
		{"invalid field", service.ErrInvalidField, http.StatusBadRequest},
		{"invalid period", service.ErrInvalidPeriod, http.StatusBadRequest},
		{"sync in progress", pricing.ErrSyncInProgress, http.StatusConflict},
		{"input", domain.NewPipelineError(domain.KindInput, "validate_image", errors.New("bad")), http.StatusUnprocessableEntity},
		{"validation", domain.NewPipelineError(domain.KindValidation, "check_required_fields", errors.New("bad")), http.StatusUnprocessableEntity},
		{"provider", domain.NewPipelineError(domain.KindProvider, "invoke_provider", errors.New("bad")), http.StatusBadGateway},
		{"provider error", provider.NewError("openai", provider.ReasonAuth, errors.New("401")), http.StatusBadGateway},
		{"persistence", domain.NewPipelineError(domain.KindPersistence, "persist_job", errors.New("bad")), http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

type fakePreviewer struct{}

func (fakePreviewer) PreviewContext(_ context.Context, id, language string) (*service.ContextPreview, error) {
	if id == "missing" {
		return nil, service.ErrImageNotFound
	}
	c := domain.ImageContext{AttachmentID: id, Language: language, FilenameHint: "sunset beach"}
	return &service.ContextPreview{Context: c, CompletenessScore: c.CompletenessScore()}, nil
}

func (fakePreviewer) PreviewPrompt(_ context.Context, _, _ string, variant domain.PromptVariant) (*prompts.Prompt, error) {
	if variant == "" {
		variant = domain.VariantStandard
	}
	return &prompts.Prompt{Text: "Describe the image.", Variant: variant, Version: string(variant) + "-abcd1234"}, nil
}

type fakeAnalyzer struct {
	err  error
	opts service.AnalyzeOptions
}

func (f *fakeAnalyzer) Analyze(_ context.Context, id, language string, opts service.AnalyzeOptions) (*service.AnalysisOutcome, error) {
	f.opts = opts
	if f.err != nil {
		return &service.AnalysisOutcome{Success: false, Decision: domain.DecisionNone, Errors: []string{f.err.Error()}}, f.err
	}
	return &service.AnalysisOutcome{
		Success:  true,
		Decision: domain.DecisionApplied,
		Job:      &domain.AnalysisJob{ID: "job-1", AttachmentID: id, Language: language},
	}, nil
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalysisHandler(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	h := NewAnalysisHandler(fakePreviewer{}, analyzer)
	r := gin.New()
	r.GET("/images/:id/context", h.PreviewContext)
	r.GET("/images/:id/prompt", h.PreviewPrompt)
	r.POST("/images/:id/analyze", h.Analyze)

	t.Run("context", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/images/42/context?language=de", "")
		var got service.ContextPreview
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || w.Code != http.StatusOK {
			t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
		}
		if got.Context.Language != "de" || got.CompletenessScore != 0.1 {
			t.Errorf("unexpected preview %+v", got)
		}
	})

	t.Run("context of unknown image", func(t *testing.T) {
		if w := serve(r, http.MethodGet, "/images/missing/context", ""); w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("prompt with variant", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/images/42/prompt?variant=minimal", "")
		var got PromptPreviewResponse
		_ = json.Unmarshal(w.Body.Bytes(), &got)
		if got.UsedVariant != domain.VariantMinimal || got.Prompt == "" {
			t.Errorf("unexpected prompt preview %+v", got)
		}
	})

	t.Run("prompt with unknown variant", func(t *testing.T) {
		if w := serve(r, http.MethodGet, "/images/42/prompt?variant=fancy", ""); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("analyze", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/images/42/analyze", `{"language":"en","variant":"advanced","trigger":"auto"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if analyzer.opts.Variant != domain.VariantAdvanced || analyzer.opts.Trigger != domain.TriggerAuto {
			t.Errorf("unexpected options %+v", analyzer.opts)
		}
	})

	t.Run("analyze without body", func(t *testing.T) {
		if w := serve(r, http.MethodPost, "/images/42/analyze", ""); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("failed analysis returns the outcome", func(t *testing.T) {
		analyzer.err = domain.NewPipelineError(domain.KindProvider, service.StepInvokeProvider, errors.New("all providers failed"))
		defer func() { analyzer.err = nil }()

		w := serve(r, http.MethodPost, "/images/42/analyze", "")
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
		var got service.AnalysisOutcome
		_ = json.Unmarshal(w.Body.Bytes(), &got)
		if got.Success || len(got.Errors) != 1 {
			t.Errorf("expected failed outcome with errors, got %+v", got)
		}
	})
}

type fakeReviewer struct {
	reviewer string
	fields   []string
	approved map[string]bool
}

func (f *fakeReviewer) Get(_ context.Context, id string) (*domain.AnalysisJob, error) {
	if id != "job-1" {
		return nil, service.ErrJobNotFound
	}
	return &domain.AnalysisJob{ID: id, Status: domain.JobStatusPending}, nil
}

func (f *fakeReviewer) Approve(ctx context.Context, id, reviewer string, fields []string) (bool, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return false, err
	}
	for _, field := range fields {
		if field == "bogus" {
			return false, service.ErrInvalidField
		}
	}
	f.reviewer, f.fields = reviewer, fields
	if f.approved[id] {
		return false, nil
	}
	f.approved[id] = true
	return true, nil
}

func (f *fakeReviewer) Reject(_ context.Context, id, reviewer string) (bool, error) {
	f.reviewer = reviewer
	return id == "job-1", nil
}

type fakeJobLister struct {
	filter repository.JobFilter
}

func (f *fakeJobLister) List(_ context.Context, filter repository.JobFilter) ([]domain.AnalysisJob, int64, error) {
	f.filter = filter
	return []domain.AnalysisJob{{ID: "job-1"}}, 1, nil
}

type fakeStatsProvider struct{}

func (fakeStatsProvider) GetStats(_ context.Context, period string) (*domain.JobStats, error) {
	if period == "year" {
		return nil, service.ErrInvalidPeriod
	}
	return &domain.JobStats{Period: period, Approved: 3}, nil
}

func TestJobHandler(t *testing.T) {
	reviewer := &fakeReviewer{approved: map[string]bool{}}
	lister := &fakeJobLister{}
	h := NewJobHandler(lister, reviewer, fakeStatsProvider{})

	asReviewer := func(c *gin.Context) {
		c.Set(middleware.CtxReviewerKey, "alice")
		c.Next()
	}
	r := gin.New()
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.POST("/jobs/:id/approve", asReviewer, h.ApproveJob)
	r.POST("/jobs/:id/reject", asReviewer, h.RejectJob)
	r.GET("/stats", h.GetStats)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"list", http.MethodGet, "/jobs?status=pending&limit=5", "", http.StatusOK, `"total":1`},
		{"get", http.MethodGet, "/jobs/job-1", "", http.StatusOK, `"id":"job-1"`},
		{"get unknown", http.MethodGet, "/jobs/job-9", "", http.StatusNotFound, ""},
		{"approve fields", http.MethodPost, "/jobs/job-1/approve", `{"fields":["alt"]}`, http.StatusOK, `"approved":true`},
		{"approve again", http.MethodPost, "/jobs/job-1/approve", "", http.StatusOK, `"approved":false`},
		{"approve bad field", http.MethodPost, "/jobs/job-1/approve", `{"fields":["bogus"]}`, http.StatusBadRequest, ""},
		{"approve unknown", http.MethodPost, "/jobs/job-9/approve", "", http.StatusNotFound, ""},
		{"reject", http.MethodPost, "/jobs/job-1/reject", "", http.StatusOK, `"rejected":true`},
		{"stats", http.MethodGet, "/stats?period=week", "", http.StatusOK, `"period":"week"`},
		{"stats bad period", http.MethodGet, "/stats?period=year", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tt.wantBody, w.Body.String())
			}
		})
	}

	if reviewer.reviewer != "alice" {
		t.Errorf("expected reviewer from auth context, got %q", reviewer.reviewer)
	}
	if lister.filter.Status != domain.JobStatusPending || lister.filter.Limit != 5 {
		t.Errorf("unexpected filter %+v", lister.filter)
	}
}

type fakeBatchRunner struct {
	ids      []string
	language string
}

func (f *fakeBatchRunner) Run(_ context.Context, ids []string, language string, _ service.BatchOptions) *service.BatchReport {
	f.ids, f.language = ids, language
	return &service.BatchReport{BatchID: "b-1", Total: len(ids), Succeeded: int64(len(ids))}
}

func (f *fakeBatchRunner) CancelAll() int { return 0 }

type fakeMissing struct {
	key string
}

func (f *fakeMissing) ListAttachmentsMissingMeta(_ context.Context, key string, limit int) ([]string, error) {
	f.key = key
	return []string{"7", "8"}[:limit], nil
}

func TestBatchHandler(t *testing.T) {
	runner := &fakeBatchRunner{}
	missing := &fakeMissing{}
	h := NewBatchHandler(runner, missing, "en")
	r := gin.New()
	r.POST("/batch", h.RunBatch)
	r.GET("/batch/status", h.GetBatchStatus)

	if w := serve(r, http.MethodPost, "/batch", `{"ids":["1","2"],"language":"fr"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(runner.ids) != 2 || runner.language != "fr" {
		t.Errorf("unexpected run %v/%s", runner.ids, runner.language)
	}

	if w := serve(r, http.MethodPost, "/batch", `{"missing_alt":1}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if missing.key != "alt_en" || len(runner.ids) != 1 {
		t.Errorf("expected selection by alt_en, got %s %v", missing.key, runner.ids)
	}

	if w := serve(r, http.MethodPost, "/batch", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty selection, got %d", w.Code)
	}

	w := serve(r, http.MethodGet, "/batch/status", "")
	if !strings.Contains(w.Body.String(), `"last_run_status":"completed"`) {
		t.Errorf("unexpected status %s", w.Body.String())
	}
}

type fakeResolver struct{}

func (fakeResolver) ResolveAll(_ context.Context, _, language string) (map[string]multilingual.Resolution, error) {
	return map[string]multilingual.Resolution{
		domain.MetaAlt: {Value: "Sunset over the beach", SourceLanguage: "en", UsedFallback: language != "en"},
	}, nil
}

func (fakeResolver) SuggestNextLanguage(context.Context, string) (string, bool, error) {
	return "de", true, nil
}

func (fakeResolver) Chain(language string) []string { return []string{language, "en"} }

func TestMetadataHandler(t *testing.T) {
	h := NewMetadataHandler(fakeResolver{}, "en")
	r := gin.New()
	r.GET("/images/:id/metadata", h.Resolve)
	r.GET("/images/:id/metadata/next-language", h.SuggestLanguage)

	w := serve(r, http.MethodGet, "/images/1/metadata?language=pt-br", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"used_fallback":true`) {
		t.Errorf("unexpected resolution %d: %s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodGet, "/images/1/metadata/next-language", "")
	if !strings.Contains(w.Body.String(), `"language":"de"`) {
		t.Errorf("unexpected suggestion %s", w.Body.String())
	}
}

type fakeRegistry struct{}

func (fakeRegistry) Statuses() []provider.Status {
	return []provider.Status{{Name: "openai", Model: "gpt-4o-mini", Configured: true, Primary: true}}
}

func (fakeRegistry) TestConnection(_ context.Context, name string) error {
	if name != "openai" {
		return fmt.Errorf("%s: %w", name, provider.ErrUnknownProvider)
	}
	return nil
}

type fakeSyncer struct{ err error }

func (f fakeSyncer) Sync(context.Context) (int, error) { return 12, f.err }

func TestProviderHandler(t *testing.T) {
	r := gin.New()
	h := NewProviderHandler(fakeRegistry{}, fakeSyncer{})
	r.GET("/providers", h.ListProviders)
	r.POST("/providers/:name/test", h.TestProvider)
	r.POST("/pricing/sync", h.SyncPricing)

	busy := NewProviderHandler(fakeRegistry{}, fakeSyncer{err: pricing.ErrSyncInProgress})
	r.POST("/pricing/sync-busy", busy.SyncPricing)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/providers", http.StatusOK},
		{http.MethodPost, "/providers/openai/test", http.StatusOK},
		{http.MethodPost, "/providers/mistral/test", http.StatusNotFound},
		{http.MethodPost, "/pricing/sync", http.StatusOK},
		{http.MethodPost, "/pricing/sync-busy", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := serve(r, tt.method, tt.path, ""); w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler(nil, fakeRegistry{}).Health)

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"configured_providers":1`) {
		t.Errorf("unexpected health %d: %s", w.Code, w.Body.String())
	}
}
