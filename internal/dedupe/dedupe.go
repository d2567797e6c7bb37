// Package dedupe implements the idempotency gate for inbound message ids.
//
// Ids are marked before processing begins, not after success: a failure
// after marking leaves the message permanently treated as handled. That is
// the accepted trade-off for at-least-once notification delivery — the
// alternative (mark on success) would reprocess on every partial failure.
package dedupe

import (
	"context"
	"sync"
)

// Store records inbound message ids that have entered processing.
type Store interface {
	// TestAndMark marks id as seen and reports whether this was the first
	// sighting. Implementations must make the test-and-set atomic.
	TestAndMark(ctx context.Context, id string) (first bool, err error)
}

// MemoryStore is the default process-lifetime store. Duplicates across
// restarts are possible; the message table's unique index absorbs them.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// TestAndMark implements Store.
func (m *MemoryStore) TestAndMark(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = struct{}{}
	return true, nil
}

// Len returns the number of marked ids.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
