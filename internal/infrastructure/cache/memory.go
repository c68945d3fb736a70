package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDedupStore is the in-process fallback for event dedup when Redis is
// not configured. Single-process only.
type MemoryDedupStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
}

// NewMemoryDedupStore creates an in-memory dedup store
func NewMemoryDedupStore(ttl time.Duration) *MemoryDedupStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	store := &MemoryDedupStore{
		ttl:   ttl,
		items: make(map[string]time.Time),
	}

	// Start cleanup goroutine to remove expired items
	go store.cleanupExpired()

	return store
}

// Seen marks key as delivered and reports whether it had been seen already
// within the TTL window.
func (ms *MemoryDedupStore) Seen(_ context.Context, key string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	expiry, exists := ms.items[key]
	ms.items[key] = time.Now().Add(ms.ttl)
	if !exists {
		return false
	}
	return time.Now().Before(expiry)
}

// cleanupExpired periodically removes expired items
func (ms *MemoryDedupStore) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ms.mu.Lock()
		now := time.Now()
		for key, expiry := range ms.items {
			if now.After(expiry) {
				delete(ms.items, key)
			}
		}
		ms.mu.Unlock()
	}
}
