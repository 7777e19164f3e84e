// Package server exposes the headless HTTP + WebSocket API consumed by the
// presentation layer: latest book snapshots, feed connection states, manual
// reconnects, and execution simulation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/bookscope/internal/server/handler"
	"github.com/alanyoungcy/bookscope/internal/server/middleware"
	"github.com/alanyoungcy/bookscope/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Books    *handler.BookHandler
	Simulate *handler.SimulateHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required by convention, but kept behind the same
	// chain for simplicity; auth is disabled unless an API key is set).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Book endpoints.
	mux.HandleFunc("GET /api/book/{venue}/{symbol}", handlers.Books.GetSnapshot)

	// Feed lifecycle endpoints.
	mux.HandleFunc("GET /api/feeds", handlers.Books.ListFeeds)
	mux.HandleFunc("POST /api/feeds/{venue}/{symbol}/reconnect", handlers.Books.Reconnect)

	// Simulation endpoint.
	mux.HandleFunc("POST /api/simulate", handlers.Simulate.Simulate)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
