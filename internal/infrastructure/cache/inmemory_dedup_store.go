package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storesync/backend/internal/domain/webhook"
)

// entry represents a stored idempotency key with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryDedupStore implements DedupStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryDedupStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDedupStore creates a new in-memory dedup store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryDedupStore() *InMemoryDedupStore {
	store := &InMemoryDedupStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkSeen marks an idempotency key as seen with a TTL.
// Returns true if the key was newly marked, false if already present.
func (s *InMemoryDedupStore) MarkSeen(ctx context.Context, idempotencyKey string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[idempotencyKey]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil
		}
		// Entry exists but expired, will be overwritten
	}

	s.entries[idempotencyKey] = entry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// IsSeen checks whether an idempotency key is currently marked
func (s *InMemoryDedupStore) IsSeen(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[idempotencyKey]
	if !exists {
		return false, nil
	}

	if time.Now().After(e.expiresAt) {
		return false, nil
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryDedupStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryDedupStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryDedupStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryDedupStore implements DedupStore
var _ webhook.DedupStore = (*InMemoryDedupStore)(nil)
