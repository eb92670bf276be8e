package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/api/handler"
	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/logger"
)

// Handlers groups the endpoint handlers mounted by SetupRouter.
type Handlers struct {
	Health    *handler.HealthHandler
	Analysis  *handler.AnalysisHandler
	Batch     *handler.BatchHandler
	Jobs      *handler.JobHandler
	Metadata  *handler.MetadataHandler
	Providers *handler.ProviderHandler
	Events    gin.HandlerFunc
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h *Handlers, cfg *config.Config, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.NewCORSConfig(cfg.Server.CORS)))

	review := middleware.ReviewerAuth(middleware.ReviewerTokens{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
	})

	// Health check
	r.GET("/health", h.Health.Health)

	// Lifecycle event feed
	if h.Events != nil {
		r.GET("/ws/events", h.Events)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Images
		images := v1.Group("/images/:id")
		images.GET("/context", h.Analysis.PreviewContext)
		images.GET("/prompt", h.Analysis.PreviewPrompt)
		images.POST("/analyze", h.Analysis.Analyze)
		images.GET("/metadata", h.Metadata.Resolve)
		images.GET("/metadata/next-language", h.Metadata.SuggestLanguage)

		// Batches
		v1.POST("/batch", h.Batch.RunBatch)
		v1.GET("/batch/status", h.Batch.GetBatchStatus)
		v1.POST("/batch/cancel", h.Batch.CancelBatch)

		// Jobs
		v1.GET("/jobs", h.Jobs.ListJobs)
		v1.GET("/jobs/:id", h.Jobs.GetJob)
		v1.POST("/jobs/:id/approve", review, h.Jobs.ApproveJob)
		v1.POST("/jobs/:id/reject", review, h.Jobs.RejectJob)

		// Stats
		v1.GET("/stats", h.Jobs.GetStats)

		// Providers and pricing
		v1.GET("/providers", h.Providers.ListProviders)
		v1.POST("/providers/:name/test", review, h.Providers.TestProvider)
		v1.POST("/pricing/sync", review, h.Providers.SyncPricing)
	}

	return r
}
