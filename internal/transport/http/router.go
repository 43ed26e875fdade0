// Package httpapi wires the relay endpoints, health, and metrics exposition
// into one router.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	relayhandler "handoff/internal/relay/handler"
	"handoff/pkg/platform/httputil"
)

// HealthChecker reports backing store health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter mounts all public endpoints.
func NewRouter(relay *relayhandler.Handler, health HealthChecker, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	relay.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := health.Health(req.Context()); err != nil {
			logger.ErrorContext(req.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
