// Package api exposes the webhook HTTP interface for the audit service.
//
// The webhook contract is deliberately plain: the crawl platform only checks
// the response status, so every outcome is reported as text/plain "OK" or
// "Error: <reason>". Duplicate deliveries for a stage already in flight are
// acknowledged and discarded.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siteproof/linkaudit/internal/config"
	"github.com/siteproof/linkaudit/internal/locker"
	"github.com/siteproof/linkaudit/internal/pipeline"
	"github.com/siteproof/linkaudit/internal/telemetry"
)

// StageHandler runs one webhook stage to completion.
type StageHandler interface {
	Handle(ctx context.Context, stage string) error
}

// Server wires HTTP handlers to the stage router.
type Server struct {
	router chi.Router
	stages StageHandler
	locks  *locker.Locker
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(stages StageHandler, locks *locker.Locker, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		stages: stages,
		locks:  locks,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.ServerTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		// The crawl platform delivers webhooks as GET; POST is accepted for
		// manual triggering with curl.
		r.Get("/webhooks/audit", s.handleWebhook)
		r.Post("/webhooks/audit", s.handleWebhook)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	rawStage := r.URL.Query().Get("stage")

	// Validate before taking the lock or touching anything remote.
	stage, err := pipeline.ParseStage(rawStage)
	if err != nil {
		telemetry.ObserveWebhook(rawStage, "rejected")
		writeText(w, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	release, ok := s.locks.Acquire(r.Context(), string(stage))
	if !ok {
		// A delivery for this stage is already being processed; this one is
		// a redelivery and the in-flight run covers it.
		s.logger.Info("discarding duplicate webhook delivery", zap.String("stage", string(stage)))
		telemetry.ObserveWebhook(string(stage), "duplicate")
		writeText(w, http.StatusOK, "OK")
		return
	}
	defer release()

	if err := s.stages.Handle(r.Context(), string(stage)); err != nil {
		telemetry.ObserveWebhook(string(stage), "error")
		writeText(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	telemetry.ObserveWebhook(string(stage), "ok")
	writeText(w, http.StatusOK, "OK")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeText(w, http.StatusInternalServerError, "Error: internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "Error: request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeText(w, http.StatusForbidden, "Error: unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
