// Package app provides the top-level application lifecycle for bookscope. It
// wires together the feed managers, service layer, cache, and API server, and
// runs them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/bookscope/internal/config"
	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/feed"
	"github.com/alanyoungcy/bookscope/internal/server"
	"github.com/alanyoungcy/bookscope/internal/server/handler"
	"github.com/alanyoungcy/bookscope/internal/server/ws"
	"github.com/alanyoungcy/bookscope/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires dependencies, subscribes every
// configured feed, starts the API server and websocket hub, and blocks until
// the context is cancelled. On return the feeds are already closed; Close
// releases the remaining resources.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("feeds", len(a.cfg.Feeds)),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("server", a.cfg.Server.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	books := service.NewBookService(deps.Cache, deps.Bus, a.logger)

	transport := feed.NewWSTransport()
	managers := make([]*feed.Manager, 0, len(a.cfg.Feeds))
	for _, fc := range a.cfg.Feeds {
		m := feed.NewManager(transport, a.logger, books.HandleUpdate)
		if err := m.Subscribe(ctx, domain.Venue(fc.Venue), fc.Symbol); err != nil {
			// Unsupported venue: surfaced as Errored state, not fatal. The
			// config validator normally catches this earlier.
			a.logger.Warn("feed subscribe failed",
				slog.String("venue", fc.Venue),
				slog.String("symbol", fc.Symbol),
				slog.String("error", err.Error()),
			)
		}
		books.Register(m)
		managers = append(managers, m)
	}
	a.closers = append(a.closers, func() {
		for _, m := range managers {
			m.Close()
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.Bus, books, a.logger)
	g.Go(func() error { return hub.Run(gctx) })

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health:   handler.NewHealthHandler(a.logger),
			Books:    handler.NewBookHandler(books, a.logger),
			Simulate: handler.NewSimulateHandler(books, a.logger),
		}, hub, a.logger)

		g.Go(func() error { return srv.Start() })
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
