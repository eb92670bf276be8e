package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/altseo/internal/domain"
)

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
analysis:
  prompt_variant: Advanced
  auto_approve_threshold: 0.9
  templates:
    minimal: "Describe {{post_title}}"
multilingual:
  languages: [en, cs, sk]
  fallback_chains:
    cs: [sk, en]
providers:
  - name: openai
    model: gpt-4o
    api_key_env: ALTSEO_TEST_OPENAI_KEY
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ALTSEO_TEST_OPENAI_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Pricing.LockTTL != 5*time.Minute {
		t.Errorf("expected lock ttl 5m, got %v", cfg.Pricing.LockTTL)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(cfg.Providers))
	}
	p := cfg.Providers[0]
	if p.Type != ProviderOpenAI {
		t.Errorf("expected type to default to name, got %q", p.Type)
	}
	if p.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", p.APIKey)
	}

	s := cfg.Settings()
	if s.PromptVariant != domain.VariantAdvanced {
		t.Errorf("expected advanced variant, got %q", s.PromptVariant)
	}
	if s.AutoApproveThreshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", s.AutoApproveThreshold)
	}
	if s.Templates[domain.VariantMinimal] != "Describe {{post_title}}" {
		t.Errorf("unexpected minimal template: %q", s.Templates[domain.VariantMinimal])
	}
	if !s.IsMultilingual() {
		t.Error("expected multilingual with three languages")
	}
	if s.QualityRules.Alt.MaxLength != 125 {
		t.Errorf("expected alt max length 125, got %d", s.QualityRules.Alt.MaxLength)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("expected valid settings, got %v", err)
	}
}

func TestSettings_IsolatedFromConfig(t *testing.T) {
	cfg := &Config{
		Analysis:     AnalysisConfig{PromptVariant: "standard", FallbackOrder: []string{"openai"}},
		Multilingual: MultilingualConfig{FallbackChains: map[string][]string{"cs": {"sk"}}},
	}
	s := cfg.Settings()

	cfg.Analysis.FallbackOrder[0] = "gemini"
	cfg.Multilingual.FallbackChains["cs"][0] = "de"

	if s.FallbackOrder[0] != "openai" {
		t.Errorf("fallback order shares storage with config: %v", s.FallbackOrder)
	}
	if s.FallbackChains["cs"][0] != "sk" {
		t.Errorf("fallback chains share storage with config: %v", s.FallbackChains)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{name: "defaults", mutate: func(s *Settings) {}},
		{name: "threshold above one", mutate: func(s *Settings) { s.AutoApproveThreshold = 1.2 }, wantErr: true},
		{name: "negative threshold", mutate: func(s *Settings) { s.AutoApproveThreshold = -0.1 }, wantErr: true},
		{name: "unknown variant", mutate: func(s *Settings) { s.PromptVariant = "verbose" }, wantErr: true},
		{
			name:    "self referencing chain",
			mutate:  func(s *Settings) { s.FallbackChains = map[string][]string{"en": {"en"}} },
			wantErr: true,
		},
		{
			name:   "valid chain",
			mutate: func(s *Settings) { s.FallbackChains = map[string][]string{"cs": {"sk", "en"}} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{name: "sqlite path", cfg: DatabaseConfig{Driver: "sqlite", Path: "./data/a.db"}, want: "./data/a.db"},
		{name: "url wins", cfg: DatabaseConfig{Driver: "postgres", URL: "postgres://x"}, want: "postgres://x"},
		{
			name: "postgres parts",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "seo", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=seo sslmode=disable",
		},
		{
			name: "mysql parts",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", DBName: "seo"},
			want: "u:p@tcp(db:3306)/seo?charset=utf8mb4&parseTime=True&loc=Local",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
