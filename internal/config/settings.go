package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/quality"
)

// Settings is the read-only snapshot handed to pipeline components.
// It is built once and passed by value; Settings() deep-copies every
// slice and map so callers cannot mutate shared configuration.
type Settings struct {
	AIRole               string
	SiteContext          string
	AltMaxLength         int
	PromptVariant        domain.PromptVariant
	Templates            map[domain.PromptVariant]string
	AutoApproveThreshold float64
	AutoApply            bool
	RateLimitRPM         int
	FallbackOrder        []string
	ProviderTimeout      time.Duration
	QualityRules         quality.Rules
	FallbackChains       map[string][]string
	DefaultLanguage      string
	HubLanguage          string
	Languages            []string
}

// Settings builds the immutable snapshot from the loaded configuration.
func (c *Config) Settings() Settings {
	a := c.Analysis
	m := c.Multilingual

	s := Settings{
		AIRole:               a.AIRole,
		SiteContext:          a.SiteContext,
		AltMaxLength:         a.AltMaxLength,
		PromptVariant:        domain.PromptVariant(strings.ToLower(a.PromptVariant)),
		AutoApproveThreshold: a.AutoApproveThreshold,
		AutoApply:            a.AutoApply,
		RateLimitRPM:         a.RateLimitRPM,
		FallbackOrder:        append([]string(nil), a.FallbackOrder...),
		ProviderTimeout:      a.ProviderTimeout,
		QualityRules:         a.QualityRules.WithDefaults(),
		DefaultLanguage:      m.DefaultLanguage,
		HubLanguage:          m.HubLanguage,
		Languages:            append([]string(nil), m.Languages...),
	}
	if a.QualityRules.Alt.MaxLength <= 0 && a.AltMaxLength > 0 {
		s.QualityRules.Alt.MaxLength = a.AltMaxLength
	}
	if len(a.Templates) > 0 {
		s.Templates = make(map[domain.PromptVariant]string, len(a.Templates))
		for k, v := range a.Templates {
			s.Templates[domain.PromptVariant(strings.ToLower(k))] = v
		}
	}
	if len(m.FallbackChains) > 0 {
		s.FallbackChains = make(map[string][]string, len(m.FallbackChains))
		for lang, chain := range m.FallbackChains {
			s.FallbackChains[lang] = append([]string(nil), chain...)
		}
	}
	return s
}

// DefaultSettings returns the settings used when no configuration is loaded.
func DefaultSettings() Settings {
	return Settings{
		AIRole:               "SEO specialist writing accessible image metadata",
		AltMaxLength:         125,
		PromptVariant:        domain.VariantStandard,
		AutoApproveThreshold: 0.85,
		AutoApply:            true,
		RateLimitRPM:         60,
		FallbackOrder:        []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini},
		ProviderTimeout:      30 * time.Second,
		QualityRules:         quality.DefaultRules(),
		DefaultLanguage:      "en",
		HubLanguage:          "en",
		Languages:            []string{"en"},
	}
}

// IsMultilingual reports whether more than one content language is active.
func (s Settings) IsMultilingual() bool {
	return len(s.Languages) > 1
}

// Validate rejects settings the pipeline cannot run with.
func (s Settings) Validate() error {
	if s.AutoApproveThreshold < 0 || s.AutoApproveThreshold > 1 {
		return fmt.Errorf("auto_approve_threshold must be within [0,1], got %v", s.AutoApproveThreshold)
	}
	if !s.PromptVariant.Valid() {
		return fmt.Errorf("unknown prompt_variant %q", s.PromptVariant)
	}
	for variant := range s.Templates {
		if !variant.Valid() {
			return fmt.Errorf("template for unknown variant %q", variant)
		}
	}
	if s.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must not be negative")
	}
	for lang, chain := range s.FallbackChains {
		for _, fallback := range chain {
			if strings.EqualFold(fallback, lang) {
				return fmt.Errorf("fallback chain for %q references itself", lang)
			}
		}
	}
	return nil
}
