package domain

import (
	"context"
	"time"
)

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Degraded is set when the counter store could not be read and the
	// request was admitted without enforcement.
	Degraded bool
}

// RateLimitEntry is the persisted fixed-window counter for one (client, endpoint) key.
type RateLimitEntry struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

type RateLimiter interface {
	Check(ctx context.Context, clientKey, endpoint string, limit int, window time.Duration) RateLimitDecision
}
