//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"handoff/internal/relay/store"
	"handoff/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.DB, 15*time.Minute)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), `TRUNCATE upload_sessions`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestPutGetDeleteCycle() {
	ctx := context.Background()

	_, found, err := s.store.Get(ctx, "up_x")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.store.Put(ctx, "up_x", "data:image/png;base64,iVBOR"))

	payload, found, err := s.store.Get(ctx, "up_x")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("data:image/png;base64,iVBOR", payload)

	s.Require().NoError(s.store.Delete(ctx, "up_x"))
	s.Require().NoError(s.store.Delete(ctx, "up_x"), "delete must be idempotent")

	_, found, err = s.store.Get(ctx, "up_x")
	s.Require().NoError(err)
	s.False(found)
}

func (s *PostgresStoreSuite) TestOverwritePreservesCreatedAt() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "up_x", "first"))
	s.Require().NoError(s.store.Put(ctx, "up_x", "second"))

	payload, found, err := s.store.Get(ctx, "up_x")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("second", payload)

	var createdAt, updatedAt time.Time
	err = s.pg.DB.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM upload_sessions WHERE sid = $1`, "up_x",
	).Scan(&createdAt, &updatedAt)
	s.Require().NoError(err)
	s.False(updatedAt.Before(createdAt))
}

func (s *PostgresStoreSuite) TestExpiredRowsReadAsMisses() {
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := store.NewPostgres(s.pg.DB, time.Minute,
		store.WithPostgresClock(func() time.Time { return past }))
	s.Require().NoError(expired.Put(ctx, "up_old", "payload"))

	// Read with a real clock: the row's expiry is an hour in the past.
	_, found, err := s.store.Get(ctx, "up_old")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.store.RemoveExpiredAt(ctx, time.Now()))

	var count int
	err = s.pg.DB.QueryRowContext(ctx, `SELECT count(*) FROM upload_sessions`).Scan(&count)
	s.Require().NoError(err)
	s.Equal(0, count, "janitor should remove the expired row")
}

func (s *PostgresStoreSuite) TestSessionIsolation() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "up_a", "payload-a"))
	s.Require().NoError(s.store.Put(ctx, "up_b", "payload-b"))

	s.Require().NoError(s.store.Delete(ctx, "up_a"))

	payload, found, err := s.store.Get(ctx, "up_b")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("payload-b", payload)
}
