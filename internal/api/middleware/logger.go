package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/altseo/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const ginLoggerKey = "logger"

// LoggerMiddleware attaches log to every request and tags it with the request ID
// and the image or job the route addresses, so pipeline log lines emitted while
// serving the request can be traced back to it.
// Parameters:
//   - log: base logger; nil falls back to the process default.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		ctx := logger.Attach(c.Request.Context(), log)
		ctx = logger.WithFields(ctx, logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		ctx = tagRouteTarget(ctx, c)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ginLoggerKey, logger.FromContext(ctx))
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		entry := logger.With(logger.Fields{
			logger.FieldStatus:     status,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		})
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if status >= 500 {
			entry.Warn(ctx, "%s %s failed: route=%s", c.Request.Method, c.Request.URL.Path, route)
			return
		}
		entry.Info(ctx, "%s %s: route=%s", c.Request.Method, c.Request.URL.Path, route)
	}
}

// tagRouteTarget adds job_id or attachment_id from the matched route's :id.
func tagRouteTarget(ctx context.Context, c *gin.Context) context.Context {
	id := c.Param("id")
	if id == "" {
		return ctx
	}
	switch route := c.FullPath(); {
	case strings.HasPrefix(route, "/api/v1/jobs/"):
		return logger.SetJobID(ctx, id)
	case strings.HasPrefix(route, "/api/v1/images/"):
		return logger.WithField(ctx, logger.FieldAttachmentID, id)
	}
	return ctx
}

// GetLogger returns the request-scoped logger.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, exists := c.Get(ginLoggerKey); exists {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
