package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/prompts"
	"github.com/timmy/altseo/internal/provider"
	"github.com/timmy/altseo/internal/quality"
)

// Pipeline step names, in execution order.
const (
	StepValidateImage       = "validate_image"
	StepBuildContext        = "build_context"
	StepInvokeProvider      = "invoke_provider"
	StepCheckRequiredFields = "check_required_fields"
	StepValidate            = "validate"
	StepBlendScore          = "blend_score"
	StepPersistJob          = "persist_job"
)

// autoReviewer is recorded as approver of directly applied jobs.
const autoReviewer = "auto"

// ImageLoader returns provider-ready image bytes.
type ImageLoader interface {
	Load(ctx context.Context, attachmentID string) (*domain.ImagePayload, error)
}

// ContextBuilder builds the context of one image.
type ContextBuilder interface {
	Build(ctx context.Context, attachmentID, language string) domain.ImageContext
}

// Invoker calls providers with fallback.
type Invoker interface {
	InvokeWithFallback(ctx context.Context, req *provider.Request) (*provider.FallbackResult, error)
}

// CostCalculator prices token usage.
type CostCalculator interface {
	Cost(model string, usage domain.TokenUsage) domain.Costs
}

// JobWriter records jobs and marks them approved.
type JobWriter interface {
	Create(ctx context.Context, job *domain.AnalysisJob) error
	Approve(ctx context.Context, id, reviewer string, at time.Time) (bool, error)
	SetDecision(ctx context.Context, id string, decision domain.ApplyDecision) error
}

// MetadataWriter writes metadata keys of an attachment.
type MetadataWriter interface {
	SetMany(ctx context.Context, attachmentID string, values map[string]string) error
	Delete(ctx context.Context, attachmentID string, keys []string) error
}

// AnalyzeOptions controls one analysis run.
type AnalyzeOptions struct {
	Trigger domain.Trigger
	Variant domain.PromptVariant
	// Context skips context aggregation when already built by a batch.
	Context *domain.ImageContext
}

// AnalysisOutcome is the result of one run. Success is false when any
// step failed; Errors then lists the failures.
type AnalysisOutcome struct {
	Success    bool                   `json:"success"`
	Job        *domain.AnalysisJob    `json:"job,omitempty"`
	Decision   domain.ApplyDecision   `json:"decision"`
	Fields     domain.GeneratedFields `json:"fields"`
	Validation *quality.Outcome       `json:"validation,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Errors     []string               `json:"errors,omitempty"`
	FailedStep string                 `json:"failed_step,omitempty"`
}

// OrchestratorConfig holds the collaborators of an Orchestrator.
type OrchestratorConfig struct {
	Settings  config.Settings
	Images    ImageLoader
	Contexts  ContextBuilder
	Providers Invoker
	Pricing   CostCalculator
	Jobs      JobWriter
	Metadata  MetadataWriter
	Events    events.Publisher
	Logger    *logger.Logger
}

// Orchestrator runs the analysis pipeline of one image.
type Orchestrator struct {
	settings  config.Settings
	images    ImageLoader
	contexts  ContextBuilder
	providers Invoker
	pricing   CostCalculator
	jobs      JobWriter
	metadata  MetadataWriter
	events    events.Publisher
	composer  *prompts.Composer
	validator *quality.Validator
	blender   *quality.Blender
	logger    *logger.Logger
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{
		settings:  cfg.Settings,
		images:    cfg.Images,
		contexts:  cfg.Contexts,
		providers: cfg.Providers,
		pricing:   cfg.Pricing,
		jobs:      cfg.Jobs,
		metadata:  cfg.Metadata,
		events:    publisher,
		composer:  prompts.NewComposer(cfg.Settings),
		validator: quality.NewValidator(cfg.Settings.QualityRules),
		blender:   quality.NewBlender(cfg.Settings.AutoApproveThreshold),
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// log returns the request-scoped logger; Analyze attaches the configured
// one when the caller's context carries none.
func (o *Orchestrator) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Composer exposes the prompt composer used by the pipeline.
func (o *Orchestrator) Composer() *prompts.Composer {
	return o.composer
}

// run is the state of one pipeline execution.
type run struct {
	jobID        string
	attachmentID string
	language     string
	opts         AnalyzeOptions
	started      time.Time

	image      *domain.ImagePayload
	context    domain.ImageContext
	prompt     prompts.Prompt
	invocation *provider.FallbackResult
	result     *domain.AnalysisResult
	aiScore    float64
	validation quality.Outcome
	finalScore float64
	decision   domain.ApplyDecision
	job        *domain.AnalysisJob

	errors []string
	err    error
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{StepValidateImage, o.validateImage},
		{StepBuildContext, o.buildContext},
		{StepInvokeProvider, o.invokeProvider},
		{StepCheckRequiredFields, o.checkRequiredFields},
		{StepValidate, o.validate},
		{StepBlendScore, o.blendScore},
		{StepPersistJob, o.persistJob},
	}
}

// Analyze runs the pipeline for one image.
//
// Steps run in order and the first failing step halts the run. Failed
// runs are still recorded in the job ledger. On success the job is
// written before any metadata, then the apply policy decides whether the
// fields go live, into the draft slot, or stay on the job only.
//
// Returns:
//   - *AnalysisOutcome: always non-nil.
//   - error: the classified *domain.PipelineError of the failed step.
func (o *Orchestrator) Analyze(ctx context.Context, attachmentID, language string, opts AnalyzeOptions) (*AnalysisOutcome, error) {
	if language == "" {
		language = o.settings.DefaultLanguage
	}
	if opts.Trigger == "" {
		opts.Trigger = domain.TriggerManual
	}
	r := &run{
		jobID:        uuid.New().String(),
		attachmentID: attachmentID,
		language:     language,
		opts:         opts,
		started:      o.now(),
	}
	ctx = logger.Attach(ctx, o.logger)
	ctx = logger.SetAnalysis(ctx, attachmentID, language)
	ctx = logger.SetJobID(ctx, r.jobID)

	o.publish(ctx, r, events.AnalysisStarted, map[string]interface{}{"trigger": string(opts.Trigger)})

	failedStep := ""
	for _, s := range o.steps() {
		start := time.Now()
		err := s.fn(ctx, r)
		o.log(ctx).WithFields(logger.Fields{
			logger.FieldStep:       s.name,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Debug("Pipeline step finished")
		if err != nil {
			failedStep = s.name
			r.fail(s.name, err)
			break
		}
	}

	if failedStep != "" {
		return o.finishFailed(ctx, r, failedStep), r.err
	}

	o.apply(ctx, r)
	outcome := o.outcome(r)
	o.publish(ctx, r, events.AnalysisCompleted, map[string]interface{}{
		"provider":    r.result.Provider,
		"final_score": r.finalScore,
		"decision":    string(r.decision),
		"duration_ms": r.job.DurationMs,
	})
	logger.With(logger.Fields{
		logger.FieldStatus: string(r.job.Status),
	}).WithDuration(r.job.DurationMs).WithScore(r.finalScore).Info(ctx, "Analysis completed: decision=%s", r.decision)
	return outcome, nil
}

// fail records the error of a step, classifying unclassified errors.
func (r *run) fail(stepName string, err error) {
	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		kind := domain.KindInput
		switch stepName {
		case StepInvokeProvider:
			kind = domain.KindProvider
		case StepCheckRequiredFields, StepValidate:
			kind = domain.KindValidation
		case StepPersistJob:
			kind = domain.KindPersistence
		}
		pe = domain.NewPipelineError(kind, stepName, err)
	}
	r.err = pe
	r.errors = append(r.errors, pe.Error())
}

// ============================================
// Steps
// ============================================

func (o *Orchestrator) validateImage(ctx context.Context, r *run) error {
	img, err := o.images.Load(ctx, r.attachmentID)
	if err != nil {
		return err
	}
	r.image = img
	return nil
}

func (o *Orchestrator) buildContext(ctx context.Context, r *run) error {
	if r.opts.Context != nil {
		r.context = *r.opts.Context
	} else {
		r.context = o.contexts.Build(ctx, r.attachmentID, r.language)
	}
	r.prompt = o.composer.Compose(r.opts.Variant, r.language, r.context)
	return nil
}

func (o *Orchestrator) invokeProvider(ctx context.Context, r *run) error {
	res, err := o.providers.InvokeWithFallback(ctx, &provider.Request{
		AttachmentID: r.attachmentID,
		Language:     r.language,
		Prompt:       r.prompt.Text,
		Image:        *r.image,
	})
	r.invocation = res
	if err != nil {
		return domain.NewPipelineError(domain.KindProvider, StepInvokeProvider, err)
	}

	r.result = res.Result
	r.result.Costs = o.pricing.Cost(r.result.Model, r.result.Usage)
	return nil
}

func (o *Orchestrator) checkRequiredFields(_ context.Context, r *run) error {
	if r.result.Fields.Alt == "" {
		return domain.NewPipelineError(domain.KindValidation, StepCheckRequiredFields, errors.New("alt is missing or empty"))
	}
	if r.result.Score == nil {
		return domain.NewPipelineError(domain.KindValidation, StepCheckRequiredFields, errors.New("score is missing or not numeric"))
	}
	if v := *r.result.Score; math.IsNaN(v) || v < 0 || v > 1 {
		return domain.NewPipelineError(domain.KindValidation, StepCheckRequiredFields, fmt.Errorf("score %v is outside [0,1]", v))
	}
	r.aiScore = *r.result.Score
	return nil
}

func (o *Orchestrator) validate(_ context.Context, r *run) error {
	r.validation = o.validator.Validate(r.result.Fields)
	return nil
}

func (o *Orchestrator) blendScore(_ context.Context, r *run) error {
	r.finalScore = o.blender.Blend(r.aiScore, r.validation.Score, r.context.CompletenessScore())
	r.decision = Decide(o.settings.AutoApply, r.opts.Trigger, o.blender.CanAutoApprove(r.finalScore))
	return nil
}

func (o *Orchestrator) persistJob(ctx context.Context, r *run) error {
	job := o.newJob(r)
	job.FinalScore = r.finalScore
	job.Decision = r.decision
	job.Status = domain.JobStatusPending
	if r.decision == domain.DecisionDraft {
		job.Status = domain.JobStatusProcessed
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return domain.NewPipelineError(domain.KindPersistence, StepPersistJob, fmt.Errorf("failed to record job: %w", err))
	}
	r.job = job
	return nil
}

// ============================================
// Apply policy
// ============================================

// Decide is the apply policy:
//   - auto-apply disabled: the fields stay on the job.
//   - score at or above the threshold: apply to the live fields.
//   - below the threshold from automatic ingestion: stage as draft.
//   - below the threshold from a manual request: stay on the job.
func Decide(autoApply bool, trigger domain.Trigger, approvable bool) domain.ApplyDecision {
	switch {
	case !autoApply:
		return domain.DecisionPending
	case approvable:
		return domain.DecisionApplied
	case trigger == domain.TriggerAuto:
		return domain.DecisionDraft
	default:
		return domain.DecisionPending
	}
}

func (o *Orchestrator) apply(ctx context.Context, r *run) {
	values := r.result.Fields.Values()

	switch r.decision {
	case domain.DecisionApplied:
		o.publish(ctx, r, events.MetadataBeforeApply, map[string]interface{}{"fields": fieldNames(values)})
		if err := o.metadata.SetMany(ctx, r.attachmentID, liveKeys(values, r.language)); err != nil {
			o.downgrade(ctx, r, err)
			return
		}
		if err := o.metadata.Delete(ctx, r.attachmentID, draftKeys(domain.MetadataFields, r.language)); err != nil {
			o.log(ctx).WithError(err).Warn("Failed to clear drafts")
		}
		at := o.now()
		if ok, err := o.jobs.Approve(ctx, r.job.ID, autoReviewer, at); err != nil || !ok {
			o.log(ctx).WithError(err).Warn("Failed to mark applied job as approved")
		} else {
			r.job.Status = domain.JobStatusApproved
			r.job.ApprovedBy = autoReviewer
			r.job.ApprovedAt = &at
		}
		o.publish(ctx, r, events.MetadataApplied, map[string]interface{}{"fields": fieldNames(values)})

	case domain.DecisionDraft:
		if err := o.metadata.SetMany(ctx, r.attachmentID, draftValues(values, r.language)); err != nil {
			o.downgrade(ctx, r, err)
			return
		}
		o.publish(ctx, r, events.MetadataDrafted, map[string]interface{}{"fields": fieldNames(values)})
	}
}

// downgrade keeps a job whose metadata could not be written reviewable.
func (o *Orchestrator) downgrade(ctx context.Context, r *run, err error) {
	o.log(ctx).WithError(err).Error("Failed to write metadata, job left for review")
	r.decision = domain.DecisionPending
	r.job.Decision = domain.DecisionPending
	r.errors = append(r.errors, fmt.Sprintf("metadata write failed: %v", err))
	if err := o.jobs.SetDecision(ctx, r.job.ID, domain.DecisionPending); err != nil {
		o.log(ctx).WithError(err).Warn("Failed to update job decision")
	}
}

// ============================================
// Recording
// ============================================

func (o *Orchestrator) newJob(r *run) *domain.AnalysisJob {
	processed := o.now()
	job := &domain.AnalysisJob{
		ID:              r.jobID,
		AttachmentID:    r.attachmentID,
		Language:        r.language,
		PromptVersion:   r.prompt.Version,
		Trigger:         r.opts.Trigger,
		ContextScore:    r.context.CompletenessScore(),
		AIScore:         r.aiScore,
		ValidationScore: r.validation.Score,
		Decision:        domain.DecisionNone,
		Errors:          domain.StringArray(append([]string(nil), r.errors...)),
		DurationMs:      processed.Sub(r.started).Milliseconds(),
		CreatedAt:       r.started,
		ProcessedAt:     &processed,
	}
	if b, err := json.Marshal(r.context); err == nil {
		job.Context = string(b)
	}
	if r.invocation != nil && len(r.invocation.Errors) > 0 {
		job.ProviderErrors = make(domain.JSONMap, len(r.invocation.Errors))
		for name, msg := range r.invocation.Errors {
			job.ProviderErrors[name] = msg
		}
	}
	if res := r.result; res != nil {
		job.Provider = res.Provider
		job.Model = res.Model
		job.InputTokens = res.Usage.InputTokens
		job.OutputTokens = res.Usage.OutputTokens
		job.TokensEstimated = res.Usage.Estimated
		job.InputCost = res.Costs.Input
		job.OutputCost = res.Costs.Output
		job.TotalCost = res.Costs.Total
		job.SetResponse(domain.JobResponse{Fields: res.Fields, Score: res.Score, Raw: res.Raw})
	}
	return job
}

// finishFailed records the failed run; a ledger failure here is logged
// since the run has already failed.
func (o *Orchestrator) finishFailed(ctx context.Context, r *run, failedStep string) *AnalysisOutcome {
	if failedStep != StepPersistJob {
		job := o.newJob(r)
		job.Status = domain.JobStatusFailed
		if err := o.jobs.Create(ctx, job); err != nil {
			o.log(ctx).WithError(err).Error("Failed to record failed job")
		} else {
			r.job = job
		}
	}

	o.log(ctx).WithFields(logger.Fields{
		logger.FieldStep:   failedStep,
		logger.FieldStatus: string(domain.JobStatusFailed),
	}).Warnf("Analysis failed: %v", r.err)

	o.publish(ctx, r, events.AnalysisFailed, map[string]interface{}{
		"step":            failedStep,
		"errors":          append([]string(nil), r.errors...),
		"provider_errors": providerErrors(r.invocation),
	})

	outcome := o.outcome(r)
	outcome.FailedStep = failedStep
	return outcome
}

func (o *Orchestrator) outcome(r *run) *AnalysisOutcome {
	out := &AnalysisOutcome{
		Success:  r.err == nil,
		Job:      r.job,
		Decision: r.decision,
		Errors:   append([]string(nil), r.errors...),
	}
	if out.Decision == "" {
		out.Decision = domain.DecisionNone
	}
	if r.result != nil {
		out.Fields = r.result.Fields
	}
	if r.validation.Fields != nil {
		v := r.validation
		out.Validation = &v
		out.Warnings = v.Warnings()
	}
	return out
}

func (o *Orchestrator) publish(ctx context.Context, r *run, name string, payload map[string]interface{}) {
	o.events.Publish(ctx, events.Event{
		Name:         name,
		AttachmentID: r.attachmentID,
		JobID:        r.jobID,
		Language:     r.language,
		Payload:      payload,
	})
}

func providerErrors(res *provider.FallbackResult) map[string]string {
	if res == nil {
		return nil
	}
	return res.Errors
}

func fieldNames(values map[string]string) []string {
	var out []string
	for _, f := range domain.MetadataFields {
		if _, ok := values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func liveKeys(values map[string]string, language string) map[string]string {
	out := make(map[string]string, len(values))
	for field, v := range values {
		out[domain.MetaKey(field, language)] = v
	}
	return out
}

func draftValues(values map[string]string, language string) map[string]string {
	out := make(map[string]string, len(values))
	for field, v := range values {
		out[domain.DraftKey(field, language)] = v
	}
	return out
}

func draftKeys(fields []string, language string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, domain.DraftKey(f, language))
	}
	return out
}
