package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store for tests and single-instance
// deployments without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]int64)}
}

func (s *MemoryStore) Update(_ context.Context, identity string, fn func(attempts []int64) ([]int64, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := make([]int64, len(s.records[identity]))
	copy(attempts, s.records[identity])

	updated, verdict := fn(attempts)
	if updated != nil {
		s.records[identity] = updated
	}
	return verdict
}
