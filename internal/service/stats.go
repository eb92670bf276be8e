package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/altseo/internal/domain"
)

// Stats periods.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// StatsReader aggregates the job ledger.
type StatsReader interface {
	Stats(ctx context.Context, since *time.Time) (*domain.JobStats, error)
}

// StatsService reports job ledger statistics.
type StatsService struct {
	jobs StatsReader
	now  func() time.Time
}

// NewStatsService creates a StatsService.
func NewStatsService(jobs StatsReader) *StatsService {
	return &StatsService{jobs: jobs, now: time.Now}
}

// GetStats aggregates jobs of a period; "" means all.
func (s *StatsService) GetStats(ctx context.Context, period string) (*domain.JobStats, error) {
	if period == "" {
		period = PeriodAll
	}
	since, err := s.since(period)
	if err != nil {
		return nil, err
	}
	stats, err := s.jobs.Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate jobs: %w", err)
	}
	stats.Period = period
	return stats, nil
}

func (s *StatsService) since(period string) (*time.Time, error) {
	now := s.now()
	var t time.Time
	switch period {
	case PeriodToday:
		y, m, d := now.Date()
		t = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		t = now.AddDate(0, 0, -7)
	case PeriodMonth:
		t = now.AddDate(0, -1, 0)
	case PeriodAll:
		return nil, nil
	default:
		return nil, fmt.Errorf("%q: %w", period, ErrInvalidPeriod)
	}
	return &t, nil
}
