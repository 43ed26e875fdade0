// Package handler is the thin HTTP layer over the relay service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"handoff/internal/audit"
	"handoff/internal/platform/middleware"
	"handoff/internal/relay/models"
	"handoff/internal/relay/session"
	dErrors "handoff/pkg/domain-errors"
	"handoff/pkg/platform/httputil"
)

// Service defines the relay operations the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, sid, payload string) error
	Fetch(ctx context.Context, sid string) (payload string, found bool, err error)
	Clear(ctx context.Context, sid string) error
	Events(ctx context.Context, sid string) ([]audit.Event, error)
}

const qrSize = 256

// Handler handles the relay endpoints.
type Handler struct {
	logger *slog.Logger
	relay  Service
	// publicOrigin is baked into handoff URLs rendered by the QR endpoint.
	// Empty means derive the origin from the incoming request.
	publicOrigin string
	// maxBodyBytes bounds the submit request body before JSON decoding.
	maxBodyBytes int64
}

// New creates a relay Handler.
func New(relay Service, logger *slog.Logger, publicOrigin string, maxBodyBytes int64) *Handler {
	return &Handler{
		logger:       logger,
		relay:        relay,
		publicOrigin: publicOrigin,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register mounts the relay routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	relayRouter := chi.NewRouter()
	relayRouter.Use(middleware.Recovery(h.logger))
	relayRouter.Use(middleware.RequestID)
	relayRouter.Use(middleware.RequestTime)
	relayRouter.Use(middleware.Logger(h.logger))

	relayRouter.Get("/uploads/{sid}", h.handleFetch)
	relayRouter.With(middleware.ContentTypeJSON).Put("/uploads/{sid}", h.handleSubmit)
	relayRouter.Delete("/uploads/{sid}", h.handleClear)
	relayRouter.Get("/uploads/{sid}/qr", h.handleQR)
	relayRouter.Get("/uploads/{sid}/events", h.handleEvents)

	r.Mount("/", relayRouter)
}

// handleFetch serves the polling read. A miss is 404 with {found:false} so the
// primary device can keep polling without parsing error envelopes.
func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	payload, found, err := h.relay.Fetch(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteJSON(w, http.StatusNotFound, models.FetchResponse{Found: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FetchResponse{Found: true, Payload: payload})
}

// handleSubmit accepts or overwrites the slot payload from the secondary
// device. Rejections surface synchronously so the phone can prompt a manual
// retry.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := chi.URLParam(r, "sid")

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	if err := h.relay.Submit(ctx, sid, req.Payload); err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"sid", sid,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AckResponse{OK: true})
}

// handleClear removes the slot. Always {ok:true}; clearing an absent session
// is a safe no-op.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	if err := h.relay.Clear(r.Context(), sid); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AckResponse{OK: true})
}

// handleQR renders the handoff URL for sid as a QR PNG for the primary device
// to display.
func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	origin := h.publicOrigin
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		origin = scheme + "://" + r.Host
	}

	handoffURL, err := session.HandoffURL(origin, sid)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	png, err := qrcode.Encode(handoffURL, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "qr encode failed", "sid", sid, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "qr encoding failed"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// handleEvents lists the audit trail for sid.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	events, err := h.relay.Events(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
