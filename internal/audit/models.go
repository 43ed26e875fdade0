package audit

import "time"

// Action identifies what happened to a relay slot.
type Action string

const (
	ActionPayloadStored   Action = "payload_stored"
	ActionPayloadRejected Action = "payload_rejected"
	ActionPayloadFetched  Action = "payload_fetched"
	ActionSlotCleared     Action = "slot_cleared"
)

// Event is emitted from domain logic to capture slot lifecycle actions. Keep it
// transport-agnostic so stores and sinks can fan out. Events never carry the
// payload itself, only its size.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	SID          string    `json:"sid"`
	Action       Action    `json:"action"`
	Reason       string    `json:"reason,omitempty"`
	PayloadBytes int       `json:"payload_bytes,omitempty"`
}
