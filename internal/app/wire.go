package app

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/bookscope/internal/cache/memory"
	"github.com/alanyoungcy/bookscope/internal/cache/redis"
	"github.com/alanyoungcy/bookscope/internal/config"
	"github.com/alanyoungcy/bookscope/internal/domain"
)

// Dependencies bundles the infrastructure the application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Cache mirrors the latest snapshots for external consumers. Nil when
	// Redis is disabled; the in-memory service state still serves reads.
	Cache domain.SnapshotCache

	// Bus fans feed events out to the websocket hub. Redis-backed when
	// enabled, otherwise in-process.
	Bus domain.SignalBus
}

// Wire constructs concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.Cache = redis.NewSnapshotCache(client)
		deps.Bus = redis.NewSignalBus(client)
	} else {
		deps.Bus = memory.NewSignalBus()
	}

	return deps, cleanup, nil
}
