package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handoff/internal/relay/store"
	"handoff/pkg/platform/sentinel"
)

const testInterval = 10 * time.Millisecond

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// countingSlot tracks reads per sid so cancellation tests can prove no further
// get fires for a cancelled session.
type countingSlot struct {
	Slot
	mu   sync.Mutex
	gets map[string]int
}

func newCountingSlot(inner Slot) *countingSlot {
	return &countingSlot{Slot: inner, gets: make(map[string]int)}
}

func (c *countingSlot) Get(ctx context.Context, sid string) (string, bool, error) {
	c.mu.Lock()
	c.gets[sid]++
	c.mu.Unlock()
	return c.Slot.Get(ctx, sid)
}

func (c *countingSlot) count(sid string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets[sid]
}

// flakySlot fails the first n reads to simulate transient transport trouble.
type flakySlot struct {
	Slot
	mu        sync.Mutex
	remaining int
}

func (f *flakySlot) Get(ctx context.Context, sid string) (string, bool, error) {
	f.mu.Lock()
	fail := f.remaining > 0
	if fail {
		f.remaining--
	}
	f.mu.Unlock()
	if fail {
		return "", false, sentinel.ErrUnavailable
	}
	return f.Slot.Get(ctx, sid)
}

func TestCoordinatorConsumesStoredPayload(t *testing.T) {
	mem := store.NewInMemory(0)
	ctx := context.Background()
	require.NoError(t, mem.Put(ctx, "up_a", "data:image/png;base64,iVBOR"))

	c := NewCoordinator(mem, WithInterval(testInterval), WithLogger(quietLogger()))
	result := <-c.Start(ctx, "up_a")

	require.NoError(t, result.Err)
	assert.Equal(t, "data:image/png;base64,iVBOR", result.Payload)

	// Consuming clears the slot after delivery.
	require.Eventually(t, func() bool {
		_, found, err := mem.Get(ctx, "up_a")
		return err == nil && !found
	}, time.Second, testInterval)
}

func TestCoordinatorKeepsPollingUntilSubmission(t *testing.T) {
	mem := store.NewInMemory(0)
	ctx := context.Background()

	c := NewCoordinator(mem, WithInterval(testInterval), WithLogger(quietLogger()))
	results := c.Start(ctx, "up_wait")

	// Phone takes its time.
	go func() {
		time.Sleep(4 * testInterval)
		_ = mem.Put(context.Background(), "up_wait", "payload")
	}()

	select {
	case result := <-results:
		require.NoError(t, result.Err)
		assert.Equal(t, "payload", result.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never delivered the payload")
	}
}

func TestCoordinatorCancelStopsPolling(t *testing.T) {
	slot := newCountingSlot(store.NewInMemory(0))
	ctx := context.Background()

	c := NewCoordinator(slot, WithInterval(testInterval), WithLogger(quietLogger()))
	results := c.Start(ctx, "up_cancel")

	// Let at least one poll happen, then cancel mid-interval.
	require.Eventually(t, func() bool { return slot.count("up_cancel") >= 1 }, time.Second, time.Millisecond)
	c.Cancel()

	result := <-results
	require.ErrorIs(t, result.Err, context.Canceled)

	// A retry was scheduled when Cancel hit; prove it never fires.
	observed := slot.count("up_cancel")
	time.Sleep(5 * testInterval)
	assert.Equal(t, observed, slot.count("up_cancel"), "no get may fire after cancellation")
}

func TestCoordinatorCancelIsIdempotent(t *testing.T) {
	mem := store.NewInMemory(0)
	c := NewCoordinator(mem, WithInterval(testInterval), WithLogger(quietLogger()))

	c.Cancel() // nothing active
	results := c.Start(context.Background(), "up_x")
	c.Cancel()
	c.Cancel()

	result := <-results
	require.ErrorIs(t, result.Err, context.Canceled)
}

func TestCoordinatorToleratesTransportFailures(t *testing.T) {
	mem := store.NewInMemory(0)
	ctx := context.Background()
	require.NoError(t, mem.Put(ctx, "up_flaky", "payload"))

	slot := &flakySlot{Slot: mem, remaining: 3}
	c := NewCoordinator(slot, WithInterval(testInterval), WithLogger(quietLogger()))

	select {
	case result := <-c.Start(ctx, "up_flaky"):
		require.NoError(t, result.Err, "transient failures must be retried, not surfaced")
		assert.Equal(t, "payload", result.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator gave up on transient failures")
	}
}

func TestCoordinatorMaxWaitExpires(t *testing.T) {
	mem := store.NewInMemory(0)

	c := NewCoordinator(mem,
		WithInterval(testInterval),
		WithMaxWait(5*testInterval),
		WithLogger(quietLogger()),
	)

	result := <-c.Start(context.Background(), "up_slow")
	require.ErrorIs(t, result.Err, sentinel.ErrExpired)
}

func TestCoordinatorStartCancelsPreviousSession(t *testing.T) {
	slot := newCountingSlot(store.NewInMemory(0))
	ctx := context.Background()

	c := NewCoordinator(slot, WithInterval(testInterval), WithLogger(quietLogger()))
	first := c.Start(ctx, "up_first")

	require.Eventually(t, func() bool { return slot.count("up_first") >= 1 }, time.Second, time.Millisecond)
	second := c.Start(ctx, "up_second")

	result := <-first
	require.ErrorIs(t, result.Err, context.Canceled, "starting a new session must cancel the previous one")

	observedFirst := slot.count("up_first")
	require.NoError(t, slot.Slot.(*store.InMemoryStore).Put(ctx, "up_second", "payload-2"))

	got := <-second
	require.NoError(t, got.Err)
	assert.Equal(t, "payload-2", got.Payload)
	assert.Equal(t, observedFirst, slot.count("up_first"), "orphaned timers must not poll the old session")
}

func TestCoordinatorParentContextCancellation(t *testing.T) {
	mem := store.NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())

	c := NewCoordinator(mem, WithInterval(testInterval), WithLogger(quietLogger()))
	results := c.Start(ctx, "up_ctx")

	cancel()

	result := <-results
	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, context.Canceled))
}
