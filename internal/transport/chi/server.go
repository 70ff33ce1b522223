// Package chi is the admin HTTP surface: health, registered models, manual
// sync triggers, and the metrics endpoint.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/indexmill/syndex/internal/domain"
	logpkg "github.com/indexmill/syndex/internal/logger"
	"github.com/indexmill/syndex/internal/metrics"
)

// Registry routes sync requests to registered models.
type Registry interface {
	Models() []string
	Sync(ctx context.Context, model, action string, ids []string) error
}

// Pinger checks backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the admin HTTP API.
type Server struct {
	registry Registry
	pinger   Pinger
	log      *zap.Logger
}

// NewServer creates an admin server.
func NewServer(registry Registry, pinger Pinger, log *zap.Logger) *Server {
	return &Server{registry: registry, pinger: pinger, log: log}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.logContext)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.models)
		r.Post("/sync/{model}", s.sync)
	})
	return r
}

// logContext attaches a request-scoped logger for downstream handlers.
func (s *Server) logContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.log.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logpkg.ContextWithLogger(r.Context(), l)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		logpkg.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.registry.Models()})
}

type syncRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := s.registry.Sync(r.Context(), model, req.Action, req.IDs); err != nil {
		if errors.Is(err, domain.ErrNotRegistered) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logpkg.FromContext(r.Context()).Error("sync failed",
			zap.String("model", model),
			zap.String("action", req.Action),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"model": model, "action": req.Action, "ids": len(req.IDs),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
