package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/altseo/internal/api"
	"github.com/timmy/altseo/internal/api/handler"
	"github.com/timmy/altseo/internal/app"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/logger"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer a.Close()

	sqlDB, err := a.DB.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get database handle")
	}

	lang := a.Settings.DefaultLanguage
	router := api.SetupRouter(&api.Handlers{
		Health:    handler.NewHealthHandler(sqlDB, a.Providers),
		Analysis:  handler.NewAnalysisHandler(a.Preview, a.Orchestrator),
		Batch:     handler.NewBatchHandler(a.Batch, a.Content, lang),
		Jobs:      handler.NewJobHandler(a.Jobs, a.Approval, a.Stats),
		Metadata:  handler.NewMetadataHandler(a.Resolver, lang),
		Providers: handler.NewProviderHandler(a.Providers, a.Syncer),
		Events:    a.Hub.Handler(),
	}, cfg, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if n := a.Batch.CancelAll(); n > 0 {
		appLogger.WithField("batches", n).Info("Cancelled running batches")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
