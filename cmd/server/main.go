package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"handoff/internal/audit"
	"handoff/internal/platform/config"
	"handoff/internal/platform/httpserver"
	"handoff/internal/platform/logger"
	"handoff/internal/platform/postgres"
	platformredis "handoff/internal/platform/redis"
	"handoff/internal/relay/handler"
	"handoff/internal/relay/metrics"
	"handoff/internal/relay/service"
	"handoff/internal/relay/store"
	httpapi "handoff/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the relay service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	relayStore, err := buildStore(ctx, cfg, g)
	if err != nil {
		log.Error("store setup failed", "backend", cfg.Store, "error", err)
		os.Exit(1)
	}

	auditInbox := make(chan audit.Event, 256)
	auditStore := audit.NewInMemoryStore()
	auditWorker := audit.NewWorker(auditStore, auditInbox)
	g.Go(func() error { return ignoreCancel(auditWorker.Run(ctx)) })

	svc := service.New(relayStore, log,
		service.WithMetrics(metrics.New()),
		service.WithAudit(audit.NewPublisher(auditInbox), auditStore),
		service.WithMaxPayloadBytes(cfg.MaxPayloadBytes),
	)

	relayHandler := handler.New(svc, log, cfg.PublicOrigin, submitBodyLimit(cfg.MaxPayloadBytes))
	router := httpapi.NewRouter(relayHandler, svc, log)
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting upload relay", "addr", cfg.Addr, "store", string(cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildStore constructs the configured backend and schedules its cleanup
// janitor where the backend has no native TTL.
func buildStore(ctx context.Context, cfg config.Server, g *errgroup.Group) (store.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("RELAY_REDIS_URL is required for the redis store")
		}
		return store.NewRedis(client.Client, cfg.SessionTTL), nil

	case config.StorePostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return nil, errors.New("RELAY_POSTGRES_DSN is required for the postgres store")
		}
		pg := store.NewPostgres(db, cfg.SessionTTL)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		g.Go(func() error { return ignoreCancel(pg.StartCleanup(ctx, cfg.CleanupInterval)) })
		return pg, nil

	default:
		mem := store.NewInMemory(cfg.SessionTTL)
		g.Go(func() error { return ignoreCancel(mem.StartCleanup(ctx, cfg.CleanupInterval)) })
		return mem, nil
	}
}

// submitBodyLimit allows for the JSON envelope around the payload.
func submitBodyLimit(maxPayloadBytes int64) int64 {
	if maxPayloadBytes <= 0 {
		return 0
	}
	return maxPayloadBytes + 4096
}

// ignoreCancel keeps orderly shutdown from reporting context.Canceled as a
// failure.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
