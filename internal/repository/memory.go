package repository

import (
	"context"
	"sync"
)

// MemoryStore holds the snapshot in process memory. Used by tests and
// by the "memory" storage driver.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot Snapshot
	saves    int
	failWith error
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshot: NewSnapshot()}
}

// Load returns a copy of the last saved snapshot
func (s *MemoryStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone(), nil
}

// Apply stores state with changes merged in
func (s *MemoryStore) Apply(ctx context.Context, state Snapshot, changes Changes) error {
	return s.Save(ctx, changes.Merge(state))
}

// Save stores a copy of snapshot, or returns the injected failure
func (s *MemoryStore) Save(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.snapshot = snapshot.Clone()
	s.saves++
	return nil
}

// FailWith makes every following Save return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Saves returns how many successful saves happened
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
