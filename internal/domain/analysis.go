package domain

import (
	"github.com/shopspring/decimal"
)

// Generated metadata field names.
const (
	MetaAlt      = "alt"
	MetaCaption  = "caption"
	MetaTitle    = "title"
	MetaKeywords = "keywords"
)

// MetadataFields lists the generated fields in application order.
var MetadataFields = []string{MetaAlt, MetaCaption, MetaTitle, MetaKeywords}

// GeneratedFields is the SEO metadata produced by a vision model.
type GeneratedFields struct {
	Alt      string   `json:"alt"`
	Caption  string   `json:"caption,omitempty"`
	Title    string   `json:"title,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Values returns the non-empty fields keyed by metadata field name.
// Keywords are joined with ", ".
func (f GeneratedFields) Values() map[string]string {
	out := make(map[string]string, 4)
	if f.Alt != "" {
		out[MetaAlt] = f.Alt
	}
	if f.Caption != "" {
		out[MetaCaption] = f.Caption
	}
	if f.Title != "" {
		out[MetaTitle] = f.Title
	}
	if len(f.Keywords) > 0 {
		out[MetaKeywords] = JoinKeywords(f.Keywords)
	}
	return out
}

// TokenUsage reports prompt/completion tokens of one provider call.
// Estimated is true when the provider did not report exact counts.
type TokenUsage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	Estimated    bool `json:"estimated"`
}

// Costs are the derived monetary costs of one call, in USD.
type Costs struct {
	Input  decimal.Decimal `json:"input"`
	Output decimal.Decimal `json:"output"`
	Total  decimal.Decimal `json:"total"`
}

// AnalysisResult is the outcome of one successful provider call.
// Score is nil when the model did not return a numeric self-assessment.
type AnalysisResult struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Fields   GeneratedFields `json:"fields"`
	Score    *float64        `json:"score"`
	Usage    TokenUsage      `json:"usage"`
	Costs    Costs           `json:"costs"`
	Raw      string          `json:"raw,omitempty"`
}

// ImagePayload is image data in a format every provider accepts.
type ImagePayload struct {
	AttachmentID string
	Data         []byte
	MimeType     string
	URL          string
	Width        int
	Height       int
}

// PromptVariant names one of the built-in prompt templates.
type PromptVariant string

const (
	VariantMinimal  PromptVariant = "minimal"
	VariantStandard PromptVariant = "standard"
	VariantAdvanced PromptVariant = "advanced"
)

// PromptVariants lists the known variants.
var PromptVariants = []PromptVariant{VariantMinimal, VariantStandard, VariantAdvanced}

// Valid reports whether v is a known variant.
func (v PromptVariant) Valid() bool {
	for _, known := range PromptVariants {
		if v == known {
			return true
		}
	}
	return false
}
