package prompts

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
)

// Prompt is a rendered instruction plus the template it came from.
type Prompt struct {
	Text    string               `json:"prompt"`
	Variant domain.PromptVariant `json:"used_variant"`
	Version string               `json:"version"`
}

// Composer renders prompts from the configured templates.
type Composer struct {
	settings  config.Settings
	templates map[domain.PromptVariant]string
}

// NewComposer creates a Composer. Custom templates from settings override
// the built-in defaults per variant.
func NewComposer(settings config.Settings) *Composer {
	templates := make(map[domain.PromptVariant]string, len(DefaultTemplates))
	for v, t := range DefaultTemplates {
		templates[v] = t
	}
	for v, t := range settings.Templates {
		if t != "" {
			templates[v] = t
		}
	}
	return &Composer{settings: settings, templates: templates}
}

// Template returns the template used for a variant and the variant that
// was actually selected. Unknown or empty variants resolve to the
// configured default, then to standard.
func (c *Composer) Template(variant domain.PromptVariant) (string, domain.PromptVariant) {
	if !variant.Valid() {
		variant = c.settings.PromptVariant
	}
	if !variant.Valid() {
		variant = domain.VariantStandard
	}
	return c.templates[variant], variant
}

// Data builds the flat variable map for a context.
func (c *Composer) Data(language string, ctx domain.ImageContext) map[string]interface{} {
	data := map[string]interface{}{
		"ai_role":         c.settings.AIRole,
		"site_context":    c.settings.SiteContext,
		"alt_max_length":  c.settings.AltMaxLength,
		"language":        language,
		"language_name":   LanguageName(language),
		"is_multilingual": c.settings.IsMultilingual(),
	}
	for k, v := range ctx.TemplateData() {
		data[k] = v
	}
	data["language"] = language
	return data
}

// Compose renders the prompt for one image.
func (c *Composer) Compose(variant domain.PromptVariant, language string, ctx domain.ImageContext) Prompt {
	tmpl, used := c.Template(variant)
	return Prompt{
		Text:    Render(tmpl, c.Data(language, ctx)),
		Variant: used,
		Version: Version(used, tmpl),
	}
}

// Version identifies a template revision for the job ledger.
func Version(variant domain.PromptVariant, tmpl string) string {
	sum := sha256.Sum256([]byte(tmpl))
	return string(variant) + "-" + hex.EncodeToString(sum[:4])
}
