package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: slot does not exist in the relay store
// - ErrExpired: session exceeded its allowed lifetime
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing store or transport temporarily unavailable
//
// For validation errors (bad input, malformed payloads), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
