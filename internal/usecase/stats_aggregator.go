package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"
)

// StatsCacheTTL is how long the cached counters row is served as fresh.
const StatsCacheTTL = 5 * time.Minute

type StatsAggregator struct {
	Visits VisitAggregator
	Cache  StatsCacheRepository
	Now    func() time.Time
	Logger *slog.Logger
}

func NewStatsAggregator(visits VisitAggregator, cache StatsCacheRepository, logger *slog.Logger) *StatsAggregator {
	return &StatsAggregator{
		Visits: visits,
		Cache:  cache,
		Now:    time.Now,
		Logger: logging.OrDefault(logger),
	}
}

// Refresh recomputes the global counters and overwrites the cache row. On
// failure the previous row is left in place.
func (a *StatsAggregator) Refresh(ctx context.Context) (domain.StatsSnapshot, error) {
	if a == nil || a.Visits == nil || a.Cache == nil {
		return domain.StatsSnapshot{}, errors.New("stats aggregator is not configured")
	}
	snapshot, err := a.Visits.Aggregate(ctx)
	if err != nil {
		metrics.StatsRefreshTotal.WithLabelValues("error").Inc()
		return domain.StatsSnapshot{}, fmt.Errorf("aggregate visits: %w", err)
	}
	snapshot.UpdatedAt = a.now()
	if err := a.Cache.Upsert(ctx, snapshot); err != nil {
		metrics.StatsRefreshTotal.WithLabelValues("error").Inc()
		return domain.StatsSnapshot{}, fmt.Errorf("upsert stats cache: %w", err)
	}
	metrics.StatsRefreshTotal.WithLabelValues("ok").Inc()
	logging.OrDefault(a.Logger).Debug("stats cache refreshed",
		"total_fingerprints", snapshot.TotalFingerprints,
		"unique_full_hash", snapshot.UniqueFullHash,
		"unique_hardware_hash", snapshot.UniqueHardwareHash,
	)
	return snapshot, nil
}

func (a *StatsAggregator) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}
