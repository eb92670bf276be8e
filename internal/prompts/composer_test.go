package prompts

import (
	"strings"
	"testing"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
)

func TestComposer_Compose(t *testing.T) {
	settings := config.DefaultSettings()
	settings.AIRole = "travel editor"
	settings.Languages = []string{"en", "cs"}

	b := domain.NewContextBuilder("42", "cs", "travel")
	b.SetPostTitle("Summer on the coast")
	b.SetPostTags([]string{"beach", "sunset"})
	ctx := b.Build()

	c := NewComposer(settings)
	p := c.Compose(domain.VariantAdvanced, "cs", ctx)

	if p.Variant != domain.VariantAdvanced {
		t.Errorf("expected advanced variant, got %q", p.Variant)
	}
	for _, want := range []string{"travel editor", "Czech (cs)", "Summer on the coast", "beach, sunset", "The site is multilingual"} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(p.Text, "{{#if") || strings.Contains(p.Text, "{{/if}}") {
		t.Error("expected conditional delimiters to be stripped")
	}
	if strings.Contains(p.Text, "Camera:") {
		t.Error("expected absent camera block to be dropped")
	}
	if !strings.HasPrefix(p.Version, "advanced-") {
		t.Errorf("unexpected version %q", p.Version)
	}
}

func TestComposer_TemplateSelection(t *testing.T) {
	settings := config.DefaultSettings()
	settings.PromptVariant = domain.VariantMinimal
	settings.Templates = map[domain.PromptVariant]string{domain.VariantStandard: "custom {{language}}"}
	c := NewComposer(settings)

	tests := []struct {
		name        string
		variant     domain.PromptVariant
		wantVariant domain.PromptVariant
		wantText    string
	}{
		{name: "custom overrides default", variant: domain.VariantStandard, wantVariant: domain.VariantStandard, wantText: "custom en"},
		{name: "empty uses configured default", variant: "", wantVariant: domain.VariantMinimal},
		{name: "unknown uses configured default", variant: "fancy", wantVariant: domain.VariantMinimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Compose(tt.variant, "en", domain.NewContextBuilder("1", "en", "").Build())
			if p.Variant != tt.wantVariant {
				t.Errorf("expected variant %q, got %q", tt.wantVariant, p.Variant)
			}
			if tt.wantText != "" && p.Text != tt.wantText {
				t.Errorf("expected %q, got %q", tt.wantText, p.Text)
			}
		})
	}
}

func TestParseTemplates(t *testing.T) {
	raw := []byte("templates:\n  Minimal: \"Alt for {{post_title}}\"\n  advanced: \"\"\n")
	got, err := ParseTemplates(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[domain.VariantMinimal] != "Alt for {{post_title}}" {
		t.Errorf("unexpected minimal template %q", got[domain.VariantMinimal])
	}
	if _, ok := got[domain.VariantAdvanced]; ok {
		t.Error("expected empty template to be skipped")
	}

	if _, err := ParseTemplates([]byte("templates:\n  verbose: x\n")); err == nil {
		t.Error("expected error for unknown variant")
	}
}
