package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"identiscope/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client redis.Cmdable
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  300 * time.Millisecond,
		WriteTimeout: 300 * time.Millisecond,
	}), nil
}

// NewRedisStore keeps each counter as a JSON value with a millisecond TTL.
func NewRedisStore(client redis.Cmdable) (Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisStore{client: client}, nil
}

func (r *redisStore) Get(ctx context.Context, key string) (domain.RateLimitEntry, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RateLimitEntry{}, false, nil
	}
	if err != nil {
		return domain.RateLimitEntry{}, false, err
	}
	var entry domain.RateLimitEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.RateLimitEntry{}, false, fmt.Errorf("decode rate limit entry: %w", err)
	}
	return entry, true, nil
}

func (r *redisStore) Put(ctx context.Context, key string, entry domain.RateLimitEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return r.client.Set(ctx, key, payload, ttl).Err()
}
