package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/repository"
	"github.com/timmy/altseo/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			Path:         filepath.Join(dir, "db", "altseo.db"),
			MaxIdleConns: 1,
			MaxOpenConns: 1,
			AutoMigrate:  true,
		},
		Storage: config.StorageConfig{Type: "local", LocalRoot: filepath.Join(dir, "uploads")},
		Analysis: config.AnalysisConfig{
			AIRole:               "SEO specialist",
			PromptVariant:        "standard",
			AutoApproveThreshold: 0.85,
			AutoApply:            true,
			RateLimitRPM:         60,
		},
		Multilingual: config.MultilingualConfig{DefaultLanguage: "en", HubLanguage: "en", Languages: []string{"en"}},
		Batch:        config.BatchConfig{Workers: 2},
	}
}

func TestLoadSettingsMergesTemplateFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := "templates:\n  standard: |\n    From file {{ai_role}}\n  minimal: |\n    Minimal from file\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write template file: %v", err)
	}
	cfg.Analysis.TemplateFile = path
	cfg.Analysis.Templates = map[string]string{"minimal": "Inline minimal"}

	settings, err := LoadSettings(cfg)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got := settings.Templates[domain.VariantStandard]; got != "From file {{ai_role}}\n" {
		t.Errorf("expected standard from file, got %q", got)
	}
	if got := settings.Templates[domain.VariantMinimal]; got != "Inline minimal" {
		t.Errorf("expected inline template to win, got %q", got)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold", func(c *config.Config) { c.Analysis.AutoApproveThreshold = 1.5 }},
		{"variant", func(c *config.Config) { c.Analysis.PromptVariant = "verbose" }},
		{"self-referencing chain", func(c *config.Config) {
			c.Multilingual.FallbackChains = map[string][]string{"de": {"de", "en"}}
		}},
		{"missing template file", func(c *config.Config) { c.Analysis.TemplateFile = "/nonexistent/templates.yaml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, err := LoadSettings(cfg); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestNewWiresPipeline(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), logger.GetDefault())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if a.Providers.HasConfigured() {
		t.Errorf("expected no configured providers without credentials")
	}

	// unknown attachment: the run fails at the first step and is still recorded
	outcome, err := a.Orchestrator.Analyze(ctx, "404", "", service.AnalyzeOptions{})
	if !domain.IsKind(err, domain.KindInput) || outcome.FailedStep != service.StepValidateImage {
		t.Fatalf("expected input failure, got %v at %s", err, outcome.FailedStep)
	}

	jobs, total, err := a.Jobs.List(ctx, repository.JobFilter{AttachmentID: "404"})
	if err != nil || total != 1 || jobs[0].Status != domain.JobStatusFailed {
		t.Fatalf("expected one failed job, got %d (%v)", total, err)
	}

	if err := a.AuditLog.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	audit, err := a.Audit.ListByAttachment(ctx, "404", 10)
	if err != nil {
		t.Fatalf("ListByAttachment failed: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range audit {
		seen[e.EventType] = true
	}
	if !seen[events.AnalysisStarted] || !seen[events.AnalysisFailed] {
		t.Errorf("expected started and failed events in the audit log, got %v", seen)
	}
}
