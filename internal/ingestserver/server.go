// Package ingestserver exposes the thin HTTP surface of the ingest core:
// synchronous resolution for the API tier, plus health, utilization, and
// metrics endpoints for operators.
package ingestserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clipforge/ingest/internal/ingest"
)

// Resolver is the platform layer the server fronts.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*ingest.DownloadResult, error)
}

// Server wires handlers onto a chi router.
type Server struct {
	resolver Resolver
	governor *ingest.Governor
	store    ingest.CoordinationStore
}

func New(resolver Resolver, governor *ingest.Governor, store ingest.CoordinationStore) *Server {
	return &Server{resolver: resolver, governor: governor, store: store}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/resolve", s.handleResolve)
	r.Get("/api/stats", s.handleStats)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	return r
}

type resolveRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"url\": \"...\"}"})
		return
	}

	res, err := s.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		status := statusForError(err)
		slog.Warn("server: resolve failed",
			slog.String("url", req.URL),
			slog.Int("status", status),
			slog.Any("error", err))
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusForError maps the session's terminal error taxonomy onto HTTP.
func statusForError(err error) int {
	var nf *ingest.NotFoundError
	var pc *ingest.PrivateContentError
	var rl *ingest.RateLimitedError
	var at *ingest.AcquisitionTimeoutError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &pc):
		return http.StatusForbidden
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	case errors.As(err, &at):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"platforms": s.governor.Stats(r.Context()),
		"counters":  ingest.GetMetrics(),
		"fail_open": s.governor.Degraded(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	throttling := "active"
	storeStatus := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		storeStatus = "unreachable"
	}
	if s.governor.Degraded() {
		throttling = "fail-open"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"store":      storeStatus,
		"throttling": throttling,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(ingest.FormatMetrics()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: response encode failed", slog.Any("error", err))
	}
}
