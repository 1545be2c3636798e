package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"identiscope/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]memoryEntry
	maxKeys int
}

type memoryEntry struct {
	entry     domain.RateLimitEntry
	expiresAt time.Time
}

type MemoryStoreConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// NewMemoryStore returns a process-local Store. It is only consistent within
// one instance and is meant for single-node runs and tests.
func NewMemoryStore(cfg MemoryStoreConfig) Store {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryStore{
		now:     cfg.Now,
		data:    make(map[string]memoryEntry),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryStore) Get(_ context.Context, key string) (domain.RateLimitEntry, bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return domain.RateLimitEntry{}, false, nil
	}
	if !now.Before(item.expiresAt) {
		delete(m.data, key)
		return domain.RateLimitEntry{}, false, nil
	}
	return item.entry, true, nil
}

func (m *memoryStore) Put(_ context.Context, key string, entry domain.RateLimitEntry, ttl time.Duration) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxKeys {
		m.gc(now)
		if len(m.data) >= m.maxKeys {
			return errors.New("rate limiter capacity exceeded")
		}
	}
	m.data[key] = memoryEntry{entry: entry, expiresAt: now.Add(ttl)}
	return nil
}

func (m *memoryStore) gc(now time.Time) {
	for key, item := range m.data {
		if !now.Before(item.expiresAt) {
			delete(m.data, key)
		}
	}
}
