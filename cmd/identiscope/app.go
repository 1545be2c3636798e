package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identiscope/internal/config"
	"identiscope/internal/infra/db"
	"identiscope/internal/infra/detached"
	"identiscope/internal/infra/edge"
	"identiscope/internal/infra/geoip"
	httpinfra "identiscope/internal/infra/http"
	"identiscope/internal/infra/ratelimit"
	"identiscope/internal/infra/scheduler"
	"identiscope/internal/infra/schema"
	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"
	"identiscope/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type app struct {
	cfg    config.Config
	logger *slog.Logger

	store  *db.Store
	redis  *redis.Client
	geo    *geoip.DB
	runner *detached.Runner

	limiter   *ratelimit.Limiter
	edge      *edge.Provider
	analyze   *usecase.AnalyzeFingerprint
	deletions *usecase.DeletionIntake
	processor *usecase.DeletionProcessor
	stats     *usecase.StatsReader
	refresher *usecase.StatsAggregator

	jobs *scheduler.Scheduler
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := logging.NewLogger(logging.Config{
		ServiceName: "identiscope",
		Environment: cfg.AppEnv,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	slog.SetDefault(logger)
	return logger
}

func openStore(cfg config.Config, logger *slog.Logger) (*db.Store, error) {
	store, err := db.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func newApp(cfg config.Config) (*app, error) {
	logger := newLogger(cfg)
	if cfg.MetricsEnabled {
		metrics.MustRegister(nil)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	a.runner = detached.NewRunner(detached.Config{
		Workers:   cfg.DetachedWorkers,
		QueueSize: cfg.DetachedQueueSize,
		Logger:    logger,
	})

	rlStore, err := a.rateLimitStore()
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.limiter = ratelimit.NewLimiter(ratelimit.Config{
		Store:  rlStore,
		Runner: a.runner,
		Logger: logger,
		Grace:  time.Duration(cfg.RateLimitGraceSeconds) * time.Second,
	})

	edgeCfg := edge.Config{IPSalt: cfg.IPHashSalt, TrustHeaders: cfg.TrustEdgeHeaders}
	if cfg.GeoIPLocationDB != "" || cfg.GeoIPASNDB != "" {
		geo, err := geoip.Open(geoip.Config{
			LocationPath: cfg.GeoIPLocationDB,
			ASNPath:      cfg.GeoIPASNDB,
			Logger:       logger,
		})
		if err != nil {
			logger.Warn("geoip disabled", "err", err)
		} else {
			a.geo = geo
			edgeCfg.GeoIP = geo
		}
	}
	a.edge = edge.NewProvider(edgeCfg)

	visits := db.NewVisitRepository(store.DB)
	requests := db.NewDeletionRequestRepository(store.DB)
	cache := db.NewStatsCacheRepository(store.DB)

	a.analyze = usecase.NewAnalyzeFingerprint(visits, logger)
	a.deletions = usecase.NewDeletionIntake(requests, logger)
	a.processor = usecase.NewDeletionProcessor(requests, visits, cfg.DeletionBatchSize, logger)
	a.refresher = usecase.NewStatsAggregator(visits, cache, logger)
	a.stats = usecase.NewStatsReader(cache, a.refresher, a.runner, logger)
	return a, nil
}

func (a *app) rateLimitStore() (ratelimit.Store, error) {
	if a.cfg.RedisAddr == "" {
		a.logger.Info("rate limit store is process-local", "max_keys", a.cfg.RateLimitMaxKeys)
		return ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{MaxKeys: a.cfg.RateLimitMaxKeys}), nil
	}
	client, err := ratelimit.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return ratelimit.NewRedisStore(client)
}

func (a *app) ready(ctx context.Context) error {
	sqlDB, err := a.store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) serve(ctx context.Context) error {
	deps := httpinfra.ServerDeps{
		Analyze:     a.analyze,
		Deletions:   a.deletions,
		Stats:       a.stats,
		RateLimiter: a.limiter,
		Edge:        a.edge,
		Gate:        schema.NewGate(int64(a.cfg.MaxPayloadBytes)),
		Ready:       a.ready,
		Logger:      a.logger,
	}
	if a.cfg.MetricsEnabled {
		deps.Metrics = promhttp.Handler()
	}
	srv := httpinfra.NewServerWithDeps(a.cfg, deps)
	return srv.Run(ctx)
}

// startJobs schedules the deletion processor, the stats refresh and, when a
// GeoIP database is loaded, its periodic reload.
func (a *app) startJobs(ctx context.Context) error {
	a.jobs = scheduler.New(a.logger,
		scheduler.Job{
			Name:       "deletion.process",
			Interval:   a.cfg.DeletionInterval(),
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.processor.Run(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:       "stats.refresh",
			Interval:   a.cfg.StatsInterval(),
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.refresher.Refresh(ctx)
				return err
			},
		},
	)
	if a.geo != nil && a.cfg.GeoIPRefresh() > 0 {
		a.jobs.Add(scheduler.Job{
			Name:     "geoip.reload",
			Interval: a.cfg.GeoIPRefresh(),
			Run: func(context.Context) error {
				return a.geo.Reload()
			},
		})
	}
	return a.jobs.Start(ctx)
}

func (a *app) close() error {
	if a.jobs != nil {
		a.jobs.Wait()
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	var errs []error
	if a.runner != nil {
		if err := a.runner.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain detached tasks: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.geo != nil {
		if err := a.geo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
