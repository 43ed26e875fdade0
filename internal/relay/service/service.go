// Package service holds the relay's domain logic: payload validation, slot
// orchestration, and audit/metrics emission. Handlers stay thin and transport
// concerns stay out.
package service

import (
	"context"
	"log/slog"

	"handoff/internal/audit"
	"handoff/internal/relay/metrics"
	"handoff/internal/relay/models"
	"handoff/internal/relay/store"
	dErrors "handoff/pkg/domain-errors"
	"handoff/pkg/requestcontext"
)

// Recorder receives slot lifecycle events. audit.Publisher satisfies it.
type Recorder interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EventLister reads back the audit trail for one sid.
type EventLister interface {
	ListBySID(ctx context.Context, sid string) ([]audit.Event, error)
}

// Service coordinates the relay store. Metrics and audit collaborators are
// optional; a nil value disables that concern.
type Service struct {
	store           store.Store
	logger          *slog.Logger
	metrics         *metrics.Metrics
	recorder        Recorder
	events          EventLister
	maxPayloadBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches the lifecycle recorder and trail reader.
func WithAudit(recorder Recorder, events EventLister) Option {
	return func(s *Service) {
		s.recorder = recorder
		s.events = events
	}
}

// WithMaxPayloadBytes caps the encoded payload size. Zero means uncapped.
func WithMaxPayloadBytes(n int64) Option {
	return func(s *Service) { s.maxPayloadBytes = n }
}

// New creates a relay Service over the given store.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit validates and stores a payload under sid. Validation failures leave
// the slot untouched: a previously stored payload survives an invalid write.
func (s *Service) Submit(ctx context.Context, sid, payload string) error {
	if sid == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session id must not be empty")
	}
	if err := models.ValidatePayload(payload, s.maxPayloadBytes); err != nil {
		if s.metrics != nil {
			s.metrics.UploadsRejected.Inc()
		}
		s.record(ctx, audit.Event{SID: sid, Action: audit.ActionPayloadRejected, Reason: err.Error()})
		return err
	}

	if err := s.store.Put(ctx, sid, payload); err != nil {
		s.logger.ErrorContext(ctx, "store payload failed", "sid", sid, "error", err)
		return dErrors.New(dErrors.CodeUnavailable, "relay store unavailable")
	}

	if s.metrics != nil {
		s.metrics.UploadsStored.Inc()
		s.metrics.PayloadBytes.Observe(float64(len(payload)))
	}
	s.record(ctx, audit.Event{SID: sid, Action: audit.ActionPayloadStored, PayloadBytes: len(payload)})
	s.logger.InfoContext(ctx, "payload stored", "sid", sid, "bytes", len(payload))
	return nil
}

// Fetch reads the slot for sid. A miss is the normal keep-polling outcome and
// is reported as found=false, never as an error.
func (s *Service) Fetch(ctx context.Context, sid string) (string, bool, error) {
	if sid == "" {
		return "", false, dErrors.New(dErrors.CodeBadRequest, "session id must not be empty")
	}

	payload, found, err := s.store.Get(ctx, sid)
	if err != nil {
		s.logger.ErrorContext(ctx, "read slot failed", "sid", sid, "error", err)
		return "", false, dErrors.New(dErrors.CodeUnavailable, "relay store unavailable")
	}
	if !found {
		if s.metrics != nil {
			s.metrics.PollMisses.Inc()
		}
		return "", false, nil
	}

	if s.metrics != nil {
		s.metrics.PollHits.Inc()
	}
	s.record(ctx, audit.Event{SID: sid, Action: audit.ActionPayloadFetched, PayloadBytes: len(payload)})
	return payload, true, nil
}

// Clear deletes the slot for sid. Idempotent: clearing an absent or
// already-consumed session succeeds silently.
func (s *Service) Clear(ctx context.Context, sid string) error {
	if sid == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session id must not be empty")
	}

	if err := s.store.Delete(ctx, sid); err != nil {
		s.logger.ErrorContext(ctx, "clear slot failed", "sid", sid, "error", err)
		return dErrors.New(dErrors.CodeUnavailable, "relay store unavailable")
	}

	if s.metrics != nil {
		s.metrics.SlotsCleared.Inc()
	}
	s.record(ctx, audit.Event{SID: sid, Action: audit.ActionSlotCleared})
	return nil
}

// Events returns the audit trail for sid; empty when auditing is disabled.
func (s *Service) Events(ctx context.Context, sid string) ([]audit.Event, error) {
	if s.events == nil {
		return nil, nil
	}
	events, err := s.events.ListBySID(ctx, sid)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit trail unavailable")
	}
	return events, nil
}

// Health reports backing store health.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.recorder == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.recorder.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "sid", event.SID, "error", err)
	}
}
