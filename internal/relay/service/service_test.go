package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"handoff/internal/audit"
	"handoff/internal/relay/store"
	dErrors "handoff/pkg/domain-errors"
)

// captureRecorder collects emitted audit events for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *captureRecorder) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *captureRecorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]audit.Action, 0, len(r.events))
	for _, e := range r.events {
		actions = append(actions, e.Action)
	}
	return actions
}

type ServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	recorder *captureRecorder
	svc      *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory(0)
	s.recorder = &captureRecorder{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.svc = New(s.store, logger,
		WithAudit(s.recorder, nil),
		WithMaxPayloadBytes(1<<20),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func payload(content string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func (s *ServiceSuite) TestSubmitThenFetch() {
	ctx := context.Background()
	s.Require().NoError(s.svc.Submit(ctx, "up_a", payload("photo")))

	got, found, err := s.svc.Fetch(ctx, "up_a")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(payload("photo"), got)

	s.Equal([]audit.Action{audit.ActionPayloadStored, audit.ActionPayloadFetched}, s.recorder.actions())
}

func (s *ServiceSuite) TestSubmitValidation() {
	s.Run("empty payload is rejected and the slot stays untouched", func() {
		ctx := context.Background()
		s.Require().NoError(s.svc.Submit(ctx, "up_a", payload("original")))

		err := s.svc.Submit(ctx, "up_a", "")
		s.Require().Error(err)
		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal(dErrors.CodeBadRequest, de.Code)

		got, found, ferr := s.svc.Fetch(ctx, "up_a")
		s.Require().NoError(ferr)
		s.True(found)
		s.Equal(payload("original"), got, "invalid write must not clobber a stored payload")
	})

	s.Run("non-image payload is rejected", func() {
		err := s.svc.Submit(context.Background(), "up_b", "hello world")
		s.Require().Error(err)

		_, found, ferr := s.svc.Fetch(context.Background(), "up_b")
		s.Require().NoError(ferr)
		s.False(found)
	})

	s.Run("empty sid is rejected", func() {
		err := s.svc.Submit(context.Background(), "", payload("x"))
		s.Require().Error(err)
	})
}

func (s *ServiceSuite) TestOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.svc.Submit(ctx, "up_a", payload("one")))
	s.Require().NoError(s.svc.Submit(ctx, "up_a", payload("two")))

	got, found, err := s.svc.Fetch(ctx, "up_a")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(payload("two"), got)
}

func (s *ServiceSuite) TestFetchMissIsNotAnError() {
	_, found, err := s.svc.Fetch(context.Background(), "up_never")
	s.Require().NoError(err)
	s.False(found)
	s.Empty(s.recorder.actions(), "a miss is not an auditable event")
}

func (s *ServiceSuite) TestClear() {
	ctx := context.Background()
	s.Require().NoError(s.svc.Submit(ctx, "up_a", payload("photo")))
	s.Require().NoError(s.svc.Clear(ctx, "up_a"))

	_, found, err := s.svc.Fetch(ctx, "up_a")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.svc.Clear(ctx, "up_a"), "clearing an already-cleared session is a safe no-op")
}

func (s *ServiceSuite) TestRejectionIsAudited() {
	_ = s.svc.Submit(context.Background(), "up_bad", "not an image")
	s.Equal([]audit.Action{audit.ActionPayloadRejected}, s.recorder.actions())
}
