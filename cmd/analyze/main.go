package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/app"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "altseo-analyze",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ids := flag.String("ids", "", "Comma-separated attachment ids to analyze")
	missingAlt := flag.Int("missing-alt", 0, "Analyze up to N attachments without alt text")
	language := flag.String("language", "", "Target language (defaults to the configured default)")
	variant := flag.String("variant", "", "Prompt variant: minimal, standard or advanced")
	syncPricing := flag.Bool("sync-pricing", false, "Refresh the model pricing table and exit")
	token := flag.String("token", "", "Print a reviewer token for the given name and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the token printed by -token")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *token != "" {
		signed, err := middleware.ReviewerTokens{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		}.Sign(*token, *tokenTTL)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to sign reviewer token")
		}
		fmt.Println(signed)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer a.Close()

	if *syncPricing {
		n, err := a.Syncer.Sync(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to sync pricing")
		}
		appLogger.WithField(logger.FieldCount, n).Info("Pricing synced")
		return
	}

	lang := *language
	if lang == "" {
		lang = a.Settings.DefaultLanguage
	}

	targets := splitIDs(*ids)
	if *missingAlt > 0 {
		found, err := a.Content.ListAttachmentsMissingMeta(ctx, domain.MetaKey(domain.MetaAlt, lang), *missingAlt)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to list attachments without alt text")
		}
		targets = append(targets, found...)
	}
	if len(targets) == 0 {
		appLogger.Fatal("Nothing to analyze: pass -ids or -missing-alt")
	}

	opts := service.BatchOptions{Trigger: domain.TriggerManual}
	if *variant != "" {
		v := domain.PromptVariant(strings.ToLower(*variant))
		if !v.Valid() {
			appLogger.WithField("variant", *variant).Fatal("Unknown prompt variant")
		}
		opts.Variant = v
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		a.Batch.CancelAll()
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		logger.FieldCount: len(targets),
		"language":        lang,
		"variant":         string(opts.Variant),
	}).Info("Starting analysis")

	report := a.Batch.Run(ctx, targets, lang, opts)
	appLogger.WithFields(logger.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Analysis completed")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		appLogger.WithError(err).Error("Failed to write report")
	}
	if report.Failed > 0 {
		a.Close()
		logger.Sync()
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
