// Package server hosts the MCP endpoint and a small JSON API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/mcp"
)

// Server serves /mcp and the read-only /api routes.
type Server struct {
	mcp    http.Handler
	source mcp.Source
	server *http.Server
	logger *common.Logger
}

// New builds a server for addr. mcpHandler is mounted at /mcp; a nil source
// leaves /api/leaderboard unrouted.
func New(addr string, mcpHandler http.Handler, source mcp.Source, logger *common.Logger) *Server {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Server{mcp: mcpHandler, source: source, logger: logger}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(s.setupRoutes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to grace before returning.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.server.Addr).Msg("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Info().Dur("grace", grace).Msg("draining HTTP server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
