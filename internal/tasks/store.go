package tasks

import (
	"context"
	"sync"
)

// Store persists the whole task state. Save always rewrites everything.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Mode() string
	Close() error
}

// InMemoryStore keeps the last saved state in process. Used when persistence
// is not wanted and in tests.
type InMemoryStore struct {
	mu    sync.Mutex
	state State
	saves int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: State{Stats: make(map[string]UserStats)}}
}

func (s *InMemoryStore) Load(_ context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *InMemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }
