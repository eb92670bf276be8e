// Package events carries pipeline lifecycle signals to subscribers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/altseo/internal/logger"
)

// Lifecycle event names.
const (
	AnalysisStarted     = "analysis.started"
	AnalysisCompleted   = "analysis.completed"
	AnalysisFailed      = "analysis.failed"
	MetadataBeforeApply = "metadata.before_apply"
	MetadataApplied     = "metadata.applied"
	MetadataDrafted     = "metadata.drafted"
	JobApproved         = "job.approved"
	JobRejected         = "job.rejected"
)

// Event is one lifecycle signal.
type Event struct {
	Name         string                 `json:"event"`
	AttachmentID string                 `json:"attachment_id,omitempty"`
	JobID        string                 `json:"job_id,omitempty"`
	Language     string                 `json:"language,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// Observer receives events. Implementations must not block for long.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	Name() string
}

// Publisher is what the pipeline depends on.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus delivers every event to every subscribed observer, in
// subscription order, on the publishing goroutine.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds an observer.
func (b *Bus) Subscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observer)
}

// Unsubscribe removes the observer with the same name.
func (b *Bus) Unsubscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, obs := range b.observers {
		if obs.Name() == observer.Name() {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

// Publish notifies all observers. A panicking observer is logged and
// skipped; it never reaches the publisher.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, obs := range observers {
		b.deliver(ctx, obs, event)
	}
}

func (b *Bus) deliver(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"observer": obs.Name(),
				"event":    event.Name,
				"panic":    r,
			}).Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) {}
