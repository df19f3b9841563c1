// Package store persists prediction outcomes for offline inspection. The
// serving path treats persistence as optional: the core never depends on a
// write succeeding.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry is one recorded prediction outcome. Probability is nil on
// model-path outcomes, which carry no calibrated probability.
type Entry struct {
	ID          string
	CreatedAt   time.Time
	Mode        string
	Reason      string
	Prediction  int
	Probability *float64
	LatencyMS   float64
}

// Store manages prediction-log persistence and retrieval.
type Store interface {
	// Record appends one outcome.
	Record(ctx context.Context, e *Entry) error

	// Recent returns the most recent outcomes, newest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Close releases the underlying resources.
	Close() error
}

// InMemoryStore implements Store with a bounded in-memory ring. Useful in
// tests and when no database is configured.
type InMemoryStore struct {
	entries []*Entry
	max     int
	mu      sync.RWMutex
}

// NewInMemoryStore creates an in-memory store keeping at most max entries.
func NewInMemoryStore(max int) *InMemoryStore {
	if max <= 0 {
		max = 1000
	}
	return &InMemoryStore{max: max}
}

// Record appends an entry, evicting the oldest once the bound is reached.
func (s *InMemoryStore) Record(_ context.Context, e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]*Entry, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
