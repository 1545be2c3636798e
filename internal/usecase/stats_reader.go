package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/observability/logging"
)

type StatsView struct {
	Stats  domain.StatsSnapshot
	Cached bool
}

// StatsReader serves the counters row while it is younger than TTL and falls
// back to a live aggregate otherwise, scheduling a detached cache refresh.
type StatsReader struct {
	Cache      StatsCacheRepository
	Aggregator *StatsAggregator
	Runner     BackgroundRunner
	TTL        time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

func NewStatsReader(cache StatsCacheRepository, aggregator *StatsAggregator, runner BackgroundRunner, logger *slog.Logger) *StatsReader {
	return &StatsReader{
		Cache:      cache,
		Aggregator: aggregator,
		Runner:     runner,
		TTL:        StatsCacheTTL,
		Now:        time.Now,
		Logger:     logging.OrDefault(logger),
	}
}

func (r *StatsReader) Get(ctx context.Context) (StatsView, error) {
	if r == nil || r.Cache == nil || r.Aggregator == nil || r.Aggregator.Visits == nil {
		return StatsView{}, fmt.Errorf("%w: stats reader is not configured", domain.ErrStorage)
	}
	logger := logging.OrDefault(r.Logger)
	ttl := r.TTL
	if ttl <= 0 {
		ttl = StatsCacheTTL
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	cached, err := r.Cache.Get(ctx)
	switch {
	case err == nil && now.Sub(cached.UpdatedAt) < ttl:
		return StatsView{Stats: cached, Cached: true}, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.Warn("stats cache read failed", "err", err)
	}

	live, err := r.Aggregator.Visits.Aggregate(ctx)
	if err != nil {
		return StatsView{}, fmt.Errorf("%w: aggregate visits: %w", domain.ErrStorage, err)
	}
	live.UpdatedAt = now.UTC()

	aggregator := r.Aggregator
	refresh := func(ctx context.Context) error {
		_, err := aggregator.Refresh(ctx)
		return err
	}
	if r.Runner != nil {
		r.Runner.Go("stats.refresh", refresh)
	} else if err := refresh(ctx); err != nil {
		logger.Warn("stats cache refresh failed", "err", err)
	}
	return StatsView{Stats: live}, nil
}
