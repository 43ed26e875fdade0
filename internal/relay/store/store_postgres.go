package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists relay slots in PostgreSQL. Upserts go through a single
// INSERT ... ON CONFLICT statement so last-write-wins holds without explicit
// locking; row visibility gives the per-sid read-after-write guarantee.
type PostgresStore struct {
	db    *sql.DB
	ttl   time.Duration
	clock Clock
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for expiry tests.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed relay store. ttl <= 0 disables
// expiry.
func NewPostgres(db *sql.DB, ttl time.Duration, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, ttl: ttl, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the slot table when it does not exist yet. Kept next to
// the queries it serves; there is no separate migration pipeline for a single
// table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS upload_sessions (
			sid        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure upload_sessions schema: %w", err)
	}
	return nil
}

// Put upserts the slot for sid, preserving created_at across overwrites.
func (s *PostgresStore) Put(ctx context.Context, sid, payload string) error {
	now := s.clock()
	query := `
		INSERT INTO upload_sessions (sid, payload, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (sid) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, sid, payload, now, s.expiresAt(now)); err != nil {
		return fmt.Errorf("put relay slot: %w", err)
	}
	return nil
}

// Get reads the slot, treating expired rows as misses until the janitor
// removes them.
func (s *PostgresStore) Get(ctx context.Context, sid string) (string, bool, error) {
	var payload string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM upload_sessions WHERE sid = $1`, sid,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get relay slot: %w", err)
	}
	if expiresAt.Valid && !s.clock().Before(expiresAt.Time) {
		return "", false, nil
	}
	return payload, true, nil
}

// Delete removes the slot; deleting an absent sid affects zero rows and is not
// an error.
func (s *PostgresStore) Delete(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("delete relay slot: %w", err)
	}
	return nil
}

// Health pings the backing database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// StartCleanup removes expired rows on a fixed interval until ctx is cancelled.
func (s *PostgresStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RemoveExpiredAt(ctx, s.clock()); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveExpiredAt removes all rows expired as of the given time. Exported for
// testability; background cleanup passes wall-clock time.
func (s *PostgresStore) RemoveExpiredAt(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return fmt.Errorf("cleanup relay slots: %w", err)
	}
	return nil
}

func (s *PostgresStore) expiresAt(now time.Time) sql.NullTime {
	if s.ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: now.Add(s.ttl), Valid: true}
}
