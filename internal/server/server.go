// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openlot/dealsync-go/internal/metrics"
	"github.com/openlot/dealsync-go/internal/service"
	"github.com/openlot/dealsync-go/internal/store"
)

// Server wraps the HTTP API with dependencies and lifecycle management.
type Server struct {
	http         *http.Server
	orchestrator *service.SyncOrchestrator
	scheduler    *service.JobScheduler
	store        store.Store
	metrics      *metrics.Collector
	adminKey     string
	version      string
	logger       *slog.Logger
}

// Options carries the server's collaborators.
type Options struct {
	Port         string
	AdminKey     string
	Version      string
	Orchestrator *service.SyncOrchestrator
	Scheduler    *service.JobScheduler
	Store        store.Store
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

// New builds the server and its router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		orchestrator: opts.Orchestrator,
		scheduler:    opts.Scheduler,
		store:        opts.Store,
		metrics:      opts.Metrics,
		adminKey:     opts.AdminKey,
		version:      opts.Version,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/scrape-bulk", s.handleScrapeBulk)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)
	r.Patch("/jobs/{id}", s.handleUpdateJob)
	r.Post("/jobs/{id}/requeue", s.handleRequeueJob)

	s.http = &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
