package store

import (
	"context"
	"sync"
	"time"

	"handoff/internal/relay/models"
)

// InMemoryStore keeps slots in a mutex-guarded map. It is the default backend
// for single-instance deployments and the fixture for handler and service
// tests. A TTL plus the cleanup janitor act as the operational safety net for
// slots whose owner never deleted them; explicit delete remains the primary
// cleanup path.
type InMemoryStore struct {
	mu    sync.RWMutex
	slots map[string]models.UploadSession
	ttl   time.Duration
	clock Clock
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithClock sets the clock function for expiry tests.
func WithClock(clock Clock) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory creates an in-memory relay store. ttl <= 0 disables expiry.
func NewInMemory(ttl time.Duration, opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		slots: make(map[string]models.UploadSession),
		ttl:   ttl,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put upserts the slot for sid. CreatedAt survives overwrites; UpdatedAt and
// the expiry window are refreshed on every write.
func (s *InMemoryStore) Put(_ context.Context, sid, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	slot, ok := s.slots[sid]
	if !ok || s.expired(slot, now) {
		slot = models.UploadSession{SID: sid, CreatedAt: now}
	}
	slot.Payload = payload
	slot.UpdatedAt = now
	s.slots[sid] = slot
	return nil
}

// Get returns the stored payload, or found=false when the slot is absent or
// past its TTL.
func (s *InMemoryStore) Get(_ context.Context, sid string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[sid]
	if !ok || s.expired(slot, s.clock()) {
		return "", false, nil
	}
	return slot.Payload, true, nil
}

// Delete removes the slot if present. Deleting an absent sid is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, sid)
	return nil
}

// Health always succeeds for the in-process map.
func (s *InMemoryStore) Health(_ context.Context) error {
	return nil
}

// StartCleanup evicts expired slots on a fixed interval until ctx is cancelled.
func (s *InMemoryStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RemoveExpiredAt(s.clock())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveExpiredAt evicts every slot expired as of now. Exported for
// testability; the janitor passes wall-clock time.
func (s *InMemoryStore) RemoveExpiredAt(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, slot := range s.slots {
		if s.expired(slot, now) {
			delete(s.slots, sid)
		}
	}
}

func (s *InMemoryStore) expired(slot models.UploadSession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(slot.UpdatedAt) >= s.ttl
}
