package events

import (
	"context"

	"github.com/timmy/altseo/internal/logger"
)

// LoggingObserver logs lifecycle events.
type LoggingObserver struct{}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{}
}

// Name implements Observer.
func (o *LoggingObserver) Name() string { return "logging" }

// OnEvent implements Observer.
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logger.Fields{
		"event":                  event.Name,
		logger.FieldAttachmentID: event.AttachmentID,
	}
	if event.JobID != "" {
		fields[logger.FieldJobID] = event.JobID
	}
	if event.Language != "" {
		fields[logger.FieldLanguage] = event.Language
	}
	for k, v := range event.Payload {
		fields[k] = v
	}

	l := logger.FromContext(ctx).WithFields(fields)
	switch event.Name {
	case AnalysisFailed:
		l.Warn("Image analysis failed")
	case AnalysisCompleted:
		l.Info("Image analysis completed")
	case MetadataApplied, MetadataDrafted, JobApproved, JobRejected:
		l.Info("Metadata lifecycle event")
	default:
		l.Debug("Analysis event occurred")
	}
}
