package ratelimit

import (
	"context"
	"testing"
	"time"

	"identiscope/internal/domain"
)

func TestMemoryStore_ExpiresEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(MemoryStoreConfig{Now: clock.Now})
	ctx := context.Background()

	if err := store.Put(ctx, "k", domain.RateLimitEntry{Count: 3}, time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if entry, ok, _ := store.Get(ctx, "k"); !ok || entry.Count != 3 {
		t.Fatalf("expected live entry, got %+v ok=%v", entry, ok)
	}
	clock.Advance(time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("entry should expire with its ttl")
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(MemoryStoreConfig{Now: clock.Now, MaxKeys: 1})
	ctx := context.Background()

	if err := store.Put(ctx, "a", domain.RateLimitEntry{Count: 1}, time.Second); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := store.Put(ctx, "b", domain.RateLimitEntry{Count: 1}, time.Second); err == nil {
		t.Fatal("expected capacity error")
	}
	clock.Advance(2 * time.Second)
	if err := store.Put(ctx, "b", domain.RateLimitEntry{Count: 1}, time.Second); err != nil {
		t.Fatalf("expired keys should be collected: %v", err)
	}
}
