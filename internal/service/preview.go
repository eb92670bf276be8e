package service

import (
	"context"

	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/prompts"
)

// ContextPreview is the context an analysis would use.
type ContextPreview struct {
	Context           domain.ImageContext `json:"context"`
	CompletenessScore float64             `json:"completeness_score"`
}

// PreviewService shows contexts and prompts without calling a provider.
type PreviewService struct {
	images   *ImageSource
	contexts ContextBuilder
	composer *prompts.Composer
	language string
}

// NewPreviewService creates a PreviewService sharing the orchestrator's composer.
func NewPreviewService(images *ImageSource, contexts ContextBuilder, orchestrator *Orchestrator) *PreviewService {
	return &PreviewService{
		images:   images,
		contexts: contexts,
		composer: orchestrator.Composer(),
		language: orchestrator.settings.DefaultLanguage,
	}
}

// PreviewContext builds the context of an image.
func (s *PreviewService) PreviewContext(ctx context.Context, attachmentID, language string) (*ContextPreview, error) {
	if _, err := s.images.Attachment(ctx, attachmentID); err != nil {
		return nil, err
	}
	if language == "" {
		language = s.language
	}
	c := s.contexts.Build(ctx, attachmentID, language)
	return &ContextPreview{Context: c, CompletenessScore: c.CompletenessScore()}, nil
}

// PreviewPrompt renders the prompt an analysis would send. An empty
// variant uses the configured one.
func (s *PreviewService) PreviewPrompt(ctx context.Context, attachmentID, language string, variant domain.PromptVariant) (*prompts.Prompt, error) {
	preview, err := s.PreviewContext(ctx, attachmentID, language)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = s.language
	}
	p := s.composer.Compose(variant, language, preview.Context)
	return &p, nil
}
