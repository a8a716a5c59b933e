package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// MemoryStore keeps entries in process memory. Used by tests and by
// short-lived CLI runs that opt out of persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	e.Places = append([]model.RawResult(nil), e.Places...)
	return &e, nil
}

func (s *MemoryStore) Put(_ context.Context, e *Entry) error {
	cp := *e
	cp.Places = append([]model.RawResult(nil), e.Places...)
	s.mu.Lock()
	s.entries[e.Key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.HitCount++
	e.LastAccessAt = at
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.ExpiresAt = epoch
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
