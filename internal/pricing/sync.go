package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
)

// LockName is the global lock guarding price synchronization.
const LockName = "pricing_sync"

// ErrSyncInProgress is returned when another process holds the sync lock.
var ErrSyncInProgress = errors.New("pricing sync already in progress")

// Locker is a time-boxed, cross-process lock.
type Locker interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// SyncerConfig holds configuration for a Syncer.
type SyncerConfig struct {
	SourceURL   string
	Timeout     time.Duration
	MaxAttempts int
	LockTTL     time.Duration
}

// Syncer refreshes the price table from a remote JSON document.
type Syncer struct {
	cfg    SyncerConfig
	client *resty.Client
	store  Store
	locker Locker
	table  *Table
}

type remotePrice struct {
	Model         string          `json:"model"`
	Provider      string          `json:"provider"`
	InputPerMTok  decimal.Decimal `json:"input_per_mtok"`
	OutputPerMTok decimal.Decimal `json:"output_per_mtok"`
}

type remoteDocument struct {
	Models []remotePrice `json:"models"`
}

// NewSyncer creates a Syncer. Retries use resty's exponential backoff,
// up to MaxAttempts total attempts.
func NewSyncer(cfg SyncerConfig, store Store, locker Locker, table *Table) *Syncer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.MaxAttempts - 1)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(8 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
	})

	return &Syncer{cfg: cfg, client: client, store: store, locker: locker, table: table}
}

// Sync fetches remote prices and stores them. At most one sync runs at a
// time across processes; the lock is always released. When the source
// stays unreachable the error is of kind sync and the stale prices stay
// in effect.
// Returns the number of prices updated.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	if s.cfg.SourceURL == "" {
		return 0, domain.NewPipelineError(domain.KindSync, "fetch", errors.New("no pricing source configured"))
	}

	owner := uuid.New().String()
	ok, err := s.locker.Acquire(ctx, LockName, owner, s.cfg.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return 0, ErrSyncInProgress
	}
	defer func() {
		// Release with a fresh context so a cancelled sync still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, LockName, owner); err != nil {
			logger.CtxWarn(ctx, "Failed to release pricing lock: owner=%s, error=%v", owner, err)
		}
	}()

	start := time.Now()
	rows, err := s.fetch(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Pricing sync failed, keeping stale prices: error=%v", err)
		return 0, domain.NewPipelineError(domain.KindSync, "fetch", err)
	}
	if err := s.store.UpsertPrices(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store prices: %w", err)
	}
	s.table.Set(rows)

	logger.With(logger.Fields{
		logger.FieldCount:      len(rows),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Pricing sync completed")
	return len(rows), nil
}

func (s *Syncer) fetch(ctx context.Context) ([]domain.ModelPrice, error) {
	var doc remoteDocument
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(s.cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("pricing source unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pricing source returned HTTP %d", resp.StatusCode())
	}

	now := time.Now()
	rows := make([]domain.ModelPrice, 0, len(doc.Models))
	for _, m := range doc.Models {
		model := strings.ToLower(strings.TrimSpace(m.Model))
		if model == "" || m.InputPerMTok.IsNegative() || m.OutputPerMTok.IsNegative() {
			continue
		}
		rows = append(rows, domain.ModelPrice{
			Model:         model,
			Provider:      m.Provider,
			InputPerMTok:  m.InputPerMTok,
			OutputPerMTok: m.OutputPerMTok,
			SyncedAt:      now,
		})
	}
	if len(rows) == 0 {
		return nil, errors.New("pricing source returned no models")
	}
	return rows, nil
}
