package ratelimit

import (
	"context"
	"time"

	"identiscope/internal/domain"
)

// Store persists fixed-window counters with a per-key TTL. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (domain.RateLimitEntry, bool, error)
	Put(ctx context.Context, key string, entry domain.RateLimitEntry, ttl time.Duration) error
}
