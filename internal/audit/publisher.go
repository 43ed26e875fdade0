package audit

import (
	"context"
	"fmt"
	"time"
)

// Publisher hands events to the background worker through a bounded channel.
// Emit never blocks request handling: when the inbox is full the event is
// dropped and reported, because slot traffic must not stall on the audit path.
type Publisher struct {
	inbox chan<- Event
}

func NewPublisher(inbox chan<- Event) *Publisher {
	return &Publisher{inbox: inbox}
}

func (p *Publisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return fmt.Errorf("audit inbox full, dropped %s for %s", event.Action, event.SID)
	}
}
