package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the status of an analysis job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusProcessed JobStatus = "processed"
	JobStatusApproved  JobStatus = "approved"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSkipped   JobStatus = "skipped"
)

// Trigger says what started an analysis run.
type Trigger string

const (
	// TriggerAuto is automatic ingestion (e.g. on upload or from a batch).
	TriggerAuto Trigger = "auto"
	// TriggerManual is an explicit user request.
	TriggerManual Trigger = "manual"
)

// ApplyDecision is what happened to the generated metadata after a run.
type ApplyDecision string

const (
	DecisionApplied ApplyDecision = "applied"
	DecisionDraft   ApplyDecision = "draft"
	DecisionPending ApplyDecision = "pending"
	DecisionNone    ApplyDecision = "none"
)

// AnalysisJob is one persisted analysis attempt and its outcome.
// Rows are written once by the orchestrator; later changes are status
// transitions made by the approval flow.
type AnalysisJob struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	AttachmentID    string          `gorm:"type:varchar(64);not null;index:idx_jobs_attachment" json:"attachment_id"`
	Language        string          `gorm:"type:varchar(16);not null" json:"language"`
	Provider        string          `gorm:"type:text" json:"provider"`
	Model           string          `gorm:"type:text" json:"model"`
	PromptVersion   string          `gorm:"type:text" json:"prompt_version"`
	Trigger         Trigger         `gorm:"type:text" json:"trigger"`
	Context         string          `gorm:"type:text" json:"context"`
	Response        string          `gorm:"type:text" json:"response"`
	InputTokens     int             `gorm:"default:0" json:"input_tokens"`
	OutputTokens    int             `gorm:"default:0" json:"output_tokens"`
	TokensEstimated bool            `gorm:"default:false" json:"tokens_estimated"`
	InputCost       decimal.Decimal `gorm:"type:decimal(20,10)" json:"input_cost"`
	OutputCost      decimal.Decimal `gorm:"type:decimal(20,10)" json:"output_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,10)" json:"total_cost"`
	AIScore         float64         `json:"ai_score"`
	ValidationScore float64         `json:"validation_score"`
	ContextScore    float64         `json:"context_score"`
	FinalScore      float64         `gorm:"index:idx_jobs_score" json:"final_score"`
	Decision        ApplyDecision   `gorm:"type:text" json:"decision"`
	Status          JobStatus       `gorm:"type:varchar(16);index:idx_jobs_status;default:pending" json:"status"`
	Errors          StringArray     `gorm:"type:text" json:"errors,omitempty"`
	ProviderErrors  JSONMap         `gorm:"type:text" json:"provider_errors,omitempty"`
	DurationMs      int64           `json:"duration_ms"`
	ApprovedBy      string          `gorm:"type:text" json:"approved_by,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_jobs_created" json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
}

// TableName returns the database table name for AnalysisJob.
func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

// JobStats aggregates the ledger over a period.
type JobStats struct {
	Period     string          `json:"period"`
	Pending    int64           `json:"pending"`
	Processing int64           `json:"processing"`
	Approved   int64           `json:"approved"`
	Failed     int64           `json:"failed"`
	Skipped    int64           `json:"skipped"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	AvgScore   float64         `json:"avg_score"`
}

// JobResponse is the normalized model output stored on a job.
type JobResponse struct {
	Fields GeneratedFields `json:"fields"`
	Score  *float64        `json:"score"`
	Raw    string          `json:"raw,omitempty"`
}

// SetResponse serializes the model output into the job.
func (j *AnalysisJob) SetResponse(r JobResponse) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	j.Response = string(b)
}

// ParsedResponse decodes the stored model output.
func (j *AnalysisJob) ParsedResponse() (JobResponse, error) {
	var r JobResponse
	if j.Response == "" {
		return r, nil
	}
	err := json.Unmarshal([]byte(j.Response), &r)
	return r, err
}

// Reviewable reports whether the job still awaits a decision.
func (j *AnalysisJob) Reviewable() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessed
}
