// Package app wires configuration into the running components shared by
// the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/contextagg"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/events"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/multilingual"
	"github.com/timmy/altseo/internal/pricing"
	"github.com/timmy/altseo/internal/prompts"
	"github.com/timmy/altseo/internal/provider"
	"github.com/timmy/altseo/internal/repository"
	"github.com/timmy/altseo/internal/service"
	"github.com/timmy/altseo/internal/storage"
	"gorm.io/gorm"
)

const auditDrainTimeout = 10 * time.Second

// App holds every wired component.
type App struct {
	Config   *config.Config
	Settings config.Settings
	DB       *gorm.DB

	Jobs     *repository.JobRepository
	Metadata *repository.MetadataRepository
	Content  *repository.ContentRepository
	Audit    *repository.AuditRepository
	Prices   *repository.PriceRepository
	Locks    *repository.LockRepository

	Storage   storage.ObjectStorage
	Pricing   *pricing.Table
	Syncer    *pricing.Syncer
	Providers *provider.Registry
	Contexts  *contextagg.Aggregator
	Resolver  *multilingual.Resolver

	Bus      *events.Bus
	Hub      *events.Hub
	AuditLog *events.AuditObserver

	Images       *service.ImageSource
	Orchestrator *service.Orchestrator
	Preview      *service.PreviewService
	Approval     *service.ApprovalService
	Stats        *service.StatsService
	Batch        *service.BatchRunner
}

// LoadSettings builds the settings snapshot, merging the custom template
// file under inline templates, and validates it.
func LoadSettings(cfg *config.Config) (config.Settings, error) {
	settings := cfg.Settings()

	if path := cfg.Analysis.TemplateFile; path != "" {
		fromFile, err := prompts.LoadTemplateFile(path)
		if err != nil {
			return config.Settings{}, err
		}
		merged := make(map[domain.PromptVariant]string, len(fromFile)+len(settings.Templates))
		for k, v := range fromFile {
			merged[k] = v
		}
		for k, v := range settings.Templates {
			merged[k] = v
		}
		settings.Templates = merged
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid analysis settings: %w", err)
	}
	return settings, nil
}

// New connects the database and storage and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	settings, err := LoadSettings(cfg)
	if err != nil {
		return nil, err
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if b, ok := objectStorage.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	a := &App{
		Config:   cfg,
		Settings: settings,
		DB:       db,
		Jobs:     repository.NewJobRepository(db),
		Metadata: repository.NewMetadataRepository(db),
		Content:  repository.NewContentRepository(db),
		Audit:    repository.NewAuditRepository(db),
		Prices:   repository.NewPriceRepository(db),
		Locks:    repository.NewLockRepository(db),
		Storage:  objectStorage,
		Pricing:  pricing.NewTable(),
		Bus:      events.NewBus(),
		Hub:      events.NewHub(middleware.WebsocketOrigin(middleware.NewCORSConfig(cfg.Server.CORS))),
	}
	a.AuditLog = events.NewAuditObserver(a.Audit, events.DefaultAuditBuffer)

	if err := a.Pricing.Load(ctx, a.Prices); err != nil {
		log.WithError(err).Warn("Failed to load stored prices, using defaults")
	}
	a.Syncer = pricing.NewSyncer(pricing.SyncerConfig{
		SourceURL:   cfg.Pricing.SourceURL,
		Timeout:     cfg.Pricing.Timeout,
		MaxAttempts: cfg.Pricing.MaxAttempts,
		LockTTL:     cfg.Pricing.LockTTL,
	}, a.Prices, a.Locks, a.Pricing)

	a.Providers = provider.NewRegistryFromConfig(cfg.Providers, settings)
	if !a.Providers.HasConfigured() {
		log.Warn("No provider has a credential; analyses will fail until one is configured")
	}

	a.Bus.Subscribe(a.AuditLog)
	a.Bus.Subscribe(events.NewLoggingObserver())
	a.Bus.Subscribe(a.Hub)

	a.Contexts = contextagg.NewAggregator(a.Content, a.Metadata, settings)
	a.Resolver = multilingual.NewResolver(a.Metadata, settings)
	a.Images = service.NewImageSource(a.Content, objectStorage, 0)

	a.Orchestrator = service.NewOrchestrator(&service.OrchestratorConfig{
		Settings:  settings,
		Images:    a.Images,
		Contexts:  a.Contexts,
		Providers: a.Providers,
		Pricing:   a.Pricing,
		Jobs:      a.Jobs,
		Metadata:  a.Metadata,
		Events:    a.Bus,
		Logger:    log,
	})
	a.Preview = service.NewPreviewService(a.Images, a.Contexts, a.Orchestrator)
	a.Approval = service.NewApprovalService(a.Jobs, a.Metadata, a.Bus)
	a.Stats = service.NewStatsService(a.Jobs)
	a.Batch = service.NewBatchRunner(a.Orchestrator, a.Contexts, &service.BatchConfig{
		Workers:      cfg.Batch.Workers,
		RateLimitRPM: settings.RateLimitRPM,
	})

	logger.With(logger.Fields{
		logger.FieldCount: len(a.Providers.Statuses()),
	}).Info(ctx, "Pipeline ready: driver=%s, storage=%s, auto_apply=%v, threshold=%.2f",
		cfg.Database.Driver, cfg.Storage.Type, settings.AutoApply, settings.AutoApproveThreshold)
	return a, nil
}

// Close drains queued audit events, then releases the database connection.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), auditDrainTimeout)
	defer cancel()
	if err := a.AuditLog.Close(ctx); err != nil {
		logger.GetDefault().WithError(err).Warnf("Audit queue not drained: dropped=%d", a.AuditLog.Dropped())
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
