package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"handoff/pkg/platform/sentinel"
)

// DefaultInterval is the fixed delay between consecutive slot reads.
const DefaultInterval = 2 * time.Second

// Slot is the subset of the relay contract the coordinator needs. Both the
// HTTP Client and the in-process stores satisfy it.
type Slot interface {
	Get(ctx context.Context, sid string) (payload string, found bool, err error)
	Delete(ctx context.Context, sid string) error
}

// Result delivers the outcome of one polling session. Exactly one Result is
// sent per Start call.
type Result struct {
	Payload string
	Err     error
}

// Coordinator waits for a secondary device's submission by polling the slot at
// a fixed interval. Transport failures reschedule rather than terminate: the
// human on the other end may take any amount of time to snap a photo, so
// availability wins over fast-fail. Polling runs until the payload arrives,
// the caller cancels, or the optional max wait elapses.
//
// At most one polling session is active per Coordinator; Start fully cancels
// the previous session before beginning a new one. Cancellation is race-free:
// the loop re-checks its session generation and context before every read, so
// a retry already scheduled when Cancel is called never fires.
type Coordinator struct {
	slot     Slot
	interval time.Duration
	maxWait  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	sid    string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithInterval overrides the fixed polling delay.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxWait bounds the total polling duration; the session then fails with
// sentinel.ErrExpired. Zero keeps the default: poll until cancelled.
func WithMaxWait(d time.Duration) Option {
	return func(c *Coordinator) { c.maxWait = d }
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator creates a Coordinator polling the given slot.
func NewCoordinator(slot Slot, opts ...Option) *Coordinator {
	c := &Coordinator{
		slot:     slot,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Start begins polling for sid and returns a channel carrying the single
// Result. Any session already in flight is cancelled first, including its
// scheduled retry and a best-effort clear of its slot.
func (c *Coordinator) Start(ctx context.Context, sid string) <-chan Result {
	c.mu.Lock()
	c.cancelLocked()
	c.gen++
	gen := c.gen
	sessionCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.sid = sid
	c.mu.Unlock()

	results := make(chan Result, 1)
	go c.poll(sessionCtx, gen, sid, results)
	return results
}

// Cancel stops the active session, if any. After Cancel returns no further
// slot read for that session will be issued; the slot itself is cleared
// best-effort so no stale payload lingers server-side.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// cancelLocked invalidates the current session generation, cancels its
// context, and clears its slot in the background. Callers hold c.mu.
func (c *Coordinator) cancelLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.gen++

	sid := c.sid
	c.sid = ""
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.slot.Delete(ctx, sid); err != nil {
			c.logger.Warn("best-effort slot clear failed", "sid", sid, "error", err)
		}
	}()
}

// poll is the Polling → Found → Consuming loop for one session.
func (c *Coordinator) poll(ctx context.Context, gen uint64, sid string, results chan<- Result) {
	var expired <-chan time.Time
	if c.maxWait > 0 {
		expiry := time.NewTimer(c.maxWait)
		defer expiry.Stop()
		expired = expiry.C
	}

	timer := time.NewTimer(0) // first read is immediate
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			results <- Result{Err: ctx.Err()}
			return
		case <-expired:
			results <- Result{Err: sentinel.ErrExpired}
			c.clearExpired(sid)
			c.finish(gen)
			return
		case <-timer.C:
		}

		// The timer may have been ready at the same instant as a cancellation;
		// the generation check guarantees no read fires for a cancelled session.
		if !c.current(gen) {
			results <- Result{Err: context.Canceled}
			return
		}

		payload, found, err := c.slot.Get(ctx, sid)
		if err != nil {
			c.logger.WarnContext(ctx, "poll failed, will retry", "sid", sid, "error", err)
			timer.Reset(c.interval)
			continue
		}
		if !found {
			timer.Reset(c.interval)
			continue
		}

		// Consuming: hand the payload over, then clear the slot.
		results <- Result{Payload: payload}
		if err := c.slot.Delete(ctx, sid); err != nil {
			c.logger.WarnContext(ctx, "clear after consume failed", "sid", sid, "error", err)
		}
		c.finish(gen)
		return
	}
}

// current reports whether gen is still the live session.
func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// finish returns the coordinator to idle if the finished session is still the
// live one.
func (c *Coordinator) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.sid = ""
}

// clearExpired clears the slot after a max-wait expiry, detached from the
// session context which may be near its own deadline.
func (c *Coordinator) clearExpired(sid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.slot.Delete(ctx, sid); err != nil {
		c.logger.Warn("slot clear after expiry failed", "sid", sid, "error", err)
	}
}
