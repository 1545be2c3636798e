// Package ratelimit implements a fixed-window request limiter whose counters
// live in an external key-value store, so every stateless instance sees the
// same window.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/detached"
	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"
)

const (
	defaultKeyPrefix = "rl"
	defaultGrace     = 10 * time.Second
)

type Config struct {
	Store  Store
	Runner *detached.Runner
	Now    func() time.Time
	Logger *slog.Logger
	// Grace keeps an entry alive briefly past its window reset.
	Grace  time.Duration
	Prefix string
}

type Limiter struct {
	store  Store
	runner *detached.Runner
	now    func() time.Time
	logger *slog.Logger
	grace  time.Duration
	prefix string
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(MemoryStoreConfig{Now: cfg.Now})
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultKeyPrefix
	}
	return &Limiter{
		store:  cfg.Store,
		runner: cfg.Runner,
		now:    cfg.Now,
		logger: logging.OrDefault(cfg.Logger),
		grace:  cfg.Grace,
		prefix: cfg.Prefix,
	}
}

// Check counts one request for (clientKey, endpoint). The decision is taken
// from the incremented counter before the write is confirmed; the write itself
// is handed to the detached runner. A store read failure admits the request.
func (l *Limiter) Check(ctx context.Context, clientKey, endpoint string, limit int, window time.Duration) domain.RateLimitDecision {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}
	}
	if window <= 0 {
		window = time.Second
	}
	path := NormalizeEndpoint(endpoint)
	key := Key(l.prefix, clientKey, path)
	now := l.now()

	entry, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, admitting request", "endpoint", path, "err", err)
		metrics.RateLimitDecisionsTotal.WithLabelValues(path, "degraded").Inc()
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit, Degraded: true}
	}

	if !found || !now.Before(entry.ResetAt) {
		entry = domain.RateLimitEntry{Count: 1, ResetAt: now.Add(window)}
	} else {
		entry.Count++
	}

	allowed := entry.Count <= limit
	remaining := limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	ttl := entry.ResetAt.Sub(now) + l.grace
	if !allowed {
		ttl += window
	}
	l.persist(key, entry, ttl)

	result := "admit"
	if !allowed {
		result = "reject"
	}
	metrics.RateLimitDecisionsTotal.WithLabelValues(path, result).Inc()

	return domain.RateLimitDecision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   entry.ResetAt,
	}
}

func (l *Limiter) persist(key string, entry domain.RateLimitEntry, ttl time.Duration) {
	store := l.store
	l.runner.Go("ratelimit.persist", func(ctx context.Context) error {
		return store.Put(ctx, key, entry, ttl)
	})
}

// NormalizeEndpoint strips the query string and trailing slashes.
func NormalizeEndpoint(raw string) string {
	path, _, _ := strings.Cut(raw, "?")
	path, _, _ = strings.Cut(path, "#")
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

func Key(prefix, clientKey, endpoint string) string {
	return prefix + ":" + clientKey + ":" + endpoint
}

// ClientKey derives a stable, non-reversible client identity from an address.
func ClientKey(salt, addr string) string {
	sum := sha256.Sum256([]byte(salt + addr))
	return hex.EncodeToString(sum[:16])
}

var _ domain.RateLimiter = (*Limiter)(nil)
