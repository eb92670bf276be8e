package provider

import (
	"unicode/utf8"

	"github.com/timmy/altseo/internal/domain"
)

// imageTokenCost approximates the prompt tokens of one image at high detail.
const imageTokenCost = 765

// EstimateTokens approximates token counts when a provider reports none.
func EstimateTokens(prompt, completion string) domain.TokenUsage {
	return domain.TokenUsage{
		InputTokens:  utf8.RuneCountInString(prompt)/4 + imageTokenCost,
		OutputTokens: utf8.RuneCountInString(completion) / 4,
		Estimated:    true,
	}
}

// usageOrEstimate prefers exact counts and falls back to an estimate.
func usageOrEstimate(input, output int, prompt, completion string) domain.TokenUsage {
	if input > 0 || output > 0 {
		return domain.TokenUsage{InputTokens: input, OutputTokens: output}
	}
	return EstimateTokens(prompt, completion)
}
