package multilingual

import (
	"context"
	"fmt"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
)

// MetadataReader reads all metadata entries of an attachment.
type MetadataReader interface {
	GetAll(ctx context.Context, attachmentID string) (map[string]string, error)
}

// Resolution is the value surfaced for a requested field and language.
type Resolution struct {
	Value          string `json:"value"`
	SourceLanguage string `json:"source_language"`
	UsedFallback   bool   `json:"used_fallback"`
}

// Resolver surfaces metadata values across languages.
type Resolver struct {
	store           MetadataReader
	chains          Chains
	defaultLanguage string
	hubLanguage     string
	languages       []string
}

// NewResolver creates a Resolver from the settings snapshot.
func NewResolver(store MetadataReader, settings config.Settings) *Resolver {
	return &Resolver{
		store:           store,
		chains:          NewChains(settings.FallbackChains),
		defaultLanguage: normalize(settings.DefaultLanguage),
		hubLanguage:     normalize(settings.HubLanguage),
		languages:       append([]string(nil), settings.Languages...),
	}
}

func (r *Resolver) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithField(logger.FieldComponent, "multilingual")
}

// Chain returns the effective fallback chain for a language.
func (r *Resolver) Chain(language string) []string {
	return r.chains.For(language)
}

// Resolve returns field@language, or the first non-empty value along the
// language's fallback chain. All lookups use one snapshot of the metadata.
func (r *Resolver) Resolve(ctx context.Context, attachmentID, field, language string) (Resolution, error) {
	all, err := r.store.GetAll(ctx, attachmentID)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load metadata: %w", err)
	}
	return r.resolveIn(ctx, all, field, language), nil
}

// ResolveAll resolves every generated field for a language.
func (r *Resolver) ResolveAll(ctx context.Context, attachmentID, language string) (map[string]Resolution, error) {
	all, err := r.store.GetAll(ctx, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	out := make(map[string]Resolution, len(domain.MetadataFields))
	for _, field := range domain.MetadataFields {
		out[field] = r.resolveIn(ctx, all, field, language)
	}
	return out, nil
}

func (r *Resolver) resolveIn(ctx context.Context, all map[string]string, field, language string) Resolution {
	language = normalize(language)
	if v := all[domain.MetaKey(field, language)]; v != "" {
		return Resolution{Value: v, SourceLanguage: language}
	}

	// The visited set makes any chain terminate, even one that repeats
	// entries or names the requested language.
	visited := map[string]bool{language: true}
	for _, fallback := range r.chains.For(language) {
		fallback = normalize(fallback)
		if visited[fallback] {
			r.log(ctx).WithFields(logger.Fields{
				logger.FieldLanguage: language,
				"fallback":           fallback,
			}).Warn("Skipping repeated language in fallback chain")
			continue
		}
		visited[fallback] = true

		if v := all[domain.MetaKey(field, fallback)]; v != "" {
			return Resolution{Value: v, SourceLanguage: fallback, UsedFallback: true}
		}
	}
	return Resolution{SourceLanguage: language}
}

// SuggestNextLanguage returns the highest-priority language that still has
// none of the generated fields: the default language, then the hub
// language, then the remaining languages in configured order.
// ok is false when every language has at least one field.
func (r *Resolver) SuggestNextLanguage(ctx context.Context, attachmentID string) (string, bool, error) {
	all, err := r.store.GetAll(ctx, attachmentID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load metadata: %w", err)
	}
	for _, lang := range r.priority() {
		if missingAll(all, lang) {
			return lang, true, nil
		}
	}
	return "", false, nil
}

func (r *Resolver) priority() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(lang string) {
		lang = normalize(lang)
		if lang != "" && !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	add(r.defaultLanguage)
	add(r.hubLanguage)
	for _, lang := range r.languages {
		add(lang)
	}
	return out
}

func missingAll(all map[string]string, language string) bool {
	for _, field := range domain.MetadataFields {
		if all[domain.MetaKey(field, language)] != "" {
			return false
		}
	}
	return true
}
