package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/altseo/internal/domain"
)

type fakeStats struct {
	since *time.Time
}

func (f *fakeStats) Stats(_ context.Context, since *time.Time) (*domain.JobStats, error) {
	f.since = since
	return &domain.JobStats{Approved: 2, TotalCost: decimal.RequireFromString("0.5")}, nil
}

func TestGetStatsPeriods(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		period string
		want   *time.Time
	}{
		{PeriodToday, timePtr(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))},
		{PeriodWeek, timePtr(time.Date(2024, 6, 8, 14, 30, 0, 0, time.UTC))},
		{PeriodMonth, timePtr(time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC))},
		{PeriodAll, nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			reader := &fakeStats{}
			svc := NewStatsService(reader)
			svc.now = func() time.Time { return now }

			stats, err := svc.GetStats(context.Background(), tt.period)
			if err != nil {
				t.Fatalf("GetStats failed: %v", err)
			}
			if stats.Approved != 2 {
				t.Errorf("expected counts passed through, got %+v", stats)
			}
			switch {
			case tt.want == nil && reader.since != nil:
				t.Errorf("expected no lower bound, got %v", reader.since)
			case tt.want != nil && (reader.since == nil || !reader.since.Equal(*tt.want)):
				t.Errorf("expected since %v, got %v", tt.want, reader.since)
			}
		})
	}
}

func TestGetStatsUnknownPeriod(t *testing.T) {
	svc := NewStatsService(&fakeStats{})
	if _, err := svc.GetStats(context.Background(), "year"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
