// Package store provides the relay slot storage: one pending payload per
// session id, reachable by both the submitting and the polling device.
package store

import (
	"context"
	"time"
)

// Store is the single capability interface both device roles go through, so
// the backing implementation (memory map, Redis, Postgres row) can vary without
// touching the issuer or the polling coordinator.
//
// Semantics shared by all implementations:
//   - Put upserts; a second Put for the same sid overwrites, never appends.
//   - Get reports a missing slot as (found=false, err=nil); absence is a normal
//     polling outcome, not an error.
//   - Delete is idempotent; deleting an absent sid succeeds silently.
//   - Operations on the same sid are linearizable: a completed Put is visible
//     to a subsequent Get.
type Store interface {
	Put(ctx context.Context, sid, payload string) error
	Get(ctx context.Context, sid string) (payload string, found bool, err error)
	Delete(ctx context.Context, sid string) error
	Health(ctx context.Context) error
}

// Clock abstracts time.Now so expiry behavior is testable.
type Clock func() time.Time
