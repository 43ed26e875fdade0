package audit

import (
	"context"
	"sync"
)

// Store is append-only so the trail cannot be rewritten.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySID(ctx context.Context, sid string) ([]Event, error)
}

// InMemoryStore keeps the trail per sid. Slot lifecycles are short, so the
// trail is bounded by the janitor-driven churn of active sessions; a durable
// sink can replace this behind the same interface.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SID] = append(s.events[event.SID], event)
	return nil
}

func (s *InMemoryStore) ListBySID(_ context.Context, sid string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[sid]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}
