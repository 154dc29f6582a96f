// Package api exposes pipeline metadata and run history over HTTP.
//
// The server is read-only: it compiles the pipeline on demand and reports
// recorded runs, but never executes steps itself.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/pkg/plan"
)

// Config holds configuration for the API server.
type Config struct {
	// Addr is the listen address, for example ":4040".
	Addr string

	// Pipeline is the path of the pipeline file, echoed in responses.
	Pipeline string

	// Compile produces a fresh plan for the pipeline. It is called on every
	// plan and graph request so that file edits show up without a restart.
	Compile func() (*plan.Plan, error)

	// Store provides run history. May be nil, in which case the run
	// endpoints report the store as unavailable.
	Store state.Store

	Logger *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	addr     string
	pipeline string
	compile  func() (*plan.Plan, error)
	store    state.Store
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:     cfg.Addr,
		pipeline: cfg.Pipeline,
		compile:  cfg.Compile,
		store:    cfg.Store,
		logger:   logger,
	}
}

// ListenAndServe starts the server and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.addr, "pipeline", s.pipeline)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
