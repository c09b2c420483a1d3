// Package app assembles the backend and services from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/config"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/disk"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/memory"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/postgres"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/rediscache"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/supabase"
)

// Backend is the opened storage plus, for local stores, a reader for /media.
type Backend struct {
	platform.Backend
	// Files is nil when blobs are served by the hosted bucket.
	Files platform.BlobReader
}

// mediaBase is where the API serves local blobs from.
func mediaBase(cfg config.Config) string {
	return strings.TrimRight(cfg.PublicURL, "/") + "/media"
}

// OpenBackend connects the configured backend and, when REDIS_ADDR is set,
// fronts profile lookups with the Redis cache.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	var out Backend

	switch cfg.Backend {
	case config.BackendMemory:
		store := memory.NewStore(memory.WithBaseURL(mediaBase(cfg)))
		out = Backend{Backend: store.Backend(), Files: store}

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Backend{}, err
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return Backend{}, err
		}
		blobs, err := disk.New(cfg.MediaDir, mediaBase(cfg))
		if err != nil {
			pool.Close()
			return Backend{}, err
		}
		out = Backend{
			Backend: platform.Backend{
				Accounts: store,
				Profiles: store,
				Places:   store,
				Pins:     store,
				Memories: store,
				Media:    store,
				Blobs:    blobs,
				Close:    pool.Close,
			},
			Files: blobs,
		}

	case config.BackendSupabase:
		store, err := supabase.New(supabase.Config{
			URL:            cfg.Supabase.URL,
			ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
			Bucket:         cfg.Supabase.Bucket,
		}, logger.Named("supabase"))
		if err != nil {
			return Backend{}, err
		}
		out = Backend{Backend: store.Backend()}

	default:
		return Backend{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.Redis.Addr != "" {
		client, err := rediscache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			out.Shutdown()
			return Backend{}, err
		}
		out.Profiles = rediscache.New(out.Profiles, client, cfg.Redis.TTL, logger.Named("cache"))
		closeStore := out.Close
		out.Close = func() {
			client.Close()
			if closeStore != nil {
				closeStore()
			}
		}
	}

	logger.Info("backend ready",
		zap.String("backend", cfg.Backend),
		zap.Bool("redis_cache", cfg.Redis.Addr != ""))
	return out, nil
}
