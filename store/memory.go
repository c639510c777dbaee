package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store with in-process storage. It is the default
// when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records []VerificationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends one verification record.
func (s *MemoryStore) Record(ctx context.Context, rec VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns the most recent records, newest first, up to limit.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]VerificationRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
