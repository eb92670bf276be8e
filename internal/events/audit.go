package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/altseo/internal/logger"
)

// DefaultAuditBuffer is the queue size used when none is given.
const DefaultAuditBuffer = 256

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, eventType, attachmentID string, metadata map[string]interface{}) error
}

type auditEntry struct {
	ctx      context.Context
	name     string
	attachID string
	metadata map[string]interface{}
	flushed  chan struct{}
}

// AuditObserver writes every event to the audit log from a background
// worker, so publishers never wait on the database. When the queue is
// full the event is dropped and logged. Write failures are logged and
// dropped.
type AuditObserver struct {
	recorder AuditRecorder
	timeout  time.Duration
	queue    chan auditEntry
	done     chan struct{}
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewAuditObserver starts an AuditObserver with a queue of buffer
// events. Close must be called to drain it.
func NewAuditObserver(recorder AuditRecorder, buffer int) *AuditObserver {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	o := &AuditObserver{
		recorder: recorder,
		timeout:  5 * time.Second,
		queue:    make(chan auditEntry, buffer),
		done:     make(chan struct{}),
	}
	go o.run()
	return o
}

// Name implements Observer.
func (o *AuditObserver) Name() string { return "audit" }

// OnEvent implements Observer. It never blocks.
func (o *AuditObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		o.drop(ctx, event, "closed")
		return
	}
	// the audit row is written even when the caller's context is done
	entry := auditEntry{
		ctx:      context.WithoutCancel(ctx),
		name:     event.Name,
		attachID: event.AttachmentID,
		metadata: auditMetadata(event),
	}
	select {
	case o.queue <- entry:
	default:
		o.drop(ctx, event, "queue full")
	}
}

// Dropped returns how many events were not queued.
func (o *AuditObserver) Dropped() int64 {
	return o.dropped.Load()
}

// Flush waits until every event queued before the call is written.
func (o *AuditObserver) Flush(ctx context.Context) error {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil
	}
	marker := auditEntry{flushed: make(chan struct{})}
	select {
	case o.queue <- marker:
		o.mu.RUnlock()
	case <-ctx.Done():
		o.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker.flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the queue to drain.
func (o *AuditObserver) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *AuditObserver) run() {
	defer close(o.done)
	for entry := range o.queue {
		if entry.flushed != nil {
			close(entry.flushed)
			continue
		}
		o.write(entry)
	}
}

// auditMetadata copies the payload so later mutation by the publisher
// does not race the worker.
func auditMetadata(event Event) map[string]interface{} {
	metadata := make(map[string]interface{}, len(event.Payload)+2)
	for k, v := range event.Payload {
		metadata[k] = v
	}
	if event.JobID != "" {
		metadata["job_id"] = event.JobID
	}
	if event.Language != "" {
		metadata["language"] = event.Language
	}
	return metadata
}

func (o *AuditObserver) write(entry auditEntry) {
	writeCtx, cancel := context.WithTimeout(entry.ctx, o.timeout)
	defer cancel()

	if err := o.recorder.Record(writeCtx, entry.name, entry.attachID, entry.metadata); err != nil {
		logger.FromContext(entry.ctx).WithError(err).
			WithField("event", entry.name).
			Warn("Failed to record audit event")
	}
}

func (o *AuditObserver) drop(ctx context.Context, event Event, reason string) {
	n := o.dropped.Add(1)
	logger.FromContext(ctx).WithFields(logger.Fields{
		"event":   event.Name,
		"dropped": n,
	}).Warnf("Audit event dropped: %s", reason)
}
