// Copyright 2025 The Looper Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the agent over HTTP. Every JSON endpoint lives
// under /api; the Prometheus exposition, when enabled, is mounted at
// /metrics on the root.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/looperhq/looper/pkg/config"
	"github.com/looperhq/looper/pkg/engine"
	"github.com/looperhq/looper/pkg/journal"
)

// Server is the agent's HTTP face. It owns no loop state of its own;
// every handler delegates to the engine.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	keys   *config.Keys
	store  *journal.Store
	log    *slog.Logger

	metricsEnabled bool
	server         *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithJournal attaches the iteration store backing the /api/iterations
// endpoints. Without it the history endpoints serve an empty journal.
func WithJournal(store *journal.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithObservability mounts the Prometheus exposition at /metrics.
func WithObservability(enabled bool) Option {
	return func(s *Server) {
		s.metricsEnabled = enabled
	}
}

// WithLogger overrides the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New builds the server around an engine and the workspace key store.
func New(cfg *config.Config, eng *engine.Engine, keys *config.Keys, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		keys:   keys,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler assembles the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/sensors", s.handleAddSensor)
		r.Get("/sensors", s.handleListSensors)
		r.Post("/actuators", s.handleAddActuator)
		r.Get("/actuators", s.handleListActuators)

		r.Post("/percepts/chat", s.handleChatPercept)
		r.Post("/percepts/{sensor}", s.handlePerceptIngress)

		r.Post("/config/keys", s.handleSetKey)
		r.Get("/config/keys", s.handleListKeys)
		r.Post("/config/models", s.handleSetModels)
		r.Get("/config/models", s.handleGetModels)

		r.Post("/loop/start", s.handleLoopStart)
		r.Post("/loop/stop", s.handleLoopStop)
		r.Get("/loop/status", s.handleLoopStatus)
		r.Get("/loop/events", s.handleLoopEvents)

		r.Get("/state", s.handleState)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/metrics", s.handleMetrics)

		r.Get("/iterations", s.handleListIterations)
		r.Get("/iterations/{id}", s.handleGetIteration)

		r.Get("/approvals", s.handleListApprovals)
		r.Post("/approvals/{id}/approve", s.handleApprove)
		r.Post("/approvals/{id}/deny", s.handleDeny)

		r.Get("/plugins/route_contract", s.handleRouteContract)
	})

	if s.metricsEnabled {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		s.log.Info("metrics endpoint enabled", "path", "/metrics")
	}

	return r
}

// Start runs the server until the context is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("http server starting", "address", s.cfg.Bind)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests with a short deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.log.Info("http server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return s.cfg.Bind
}

// loggingMiddleware logs requests without wrapping the ResponseWriter.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// corsMiddleware adds permissive CORS headers for the dashboard UI.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
