// Package stores opens the cache backend named in the configuration.
package stores

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/internal/config"
)

// Open connects to the configured backend. Relational backends get their
// schema created if missing. The caller owns the returned store.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Store, error) {
	log := logger.With().Str("backend", cfg.CacheBackend).Logger()

	switch cfg.CacheBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("stores: postgres: %w", err)
		}
		s := cache.NewPostgresStore(pool, cfg.CacheTable, log)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("stores: postgres schema: %w", err)
		}
		return s, nil

	case config.BackendRedis:
		s, err := cache.NewRedisStore(ctx, &cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("stores: %w", err)
		}
		return s, nil

	case config.BackendBolt:
		s, err := cache.OpenBolt(cfg.BoltPath, cache.BoltOptions{Bucket: cfg.CacheTable})
		if err != nil {
			return nil, fmt.Errorf("stores: %w", err)
		}
		return s, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("stores: firestore client: %w", err)
		}
		s, err := cache.NewFirestoreStore(&cache.FirestoreConfig{
			ProjectID:      cfg.FirestoreProject,
			CollectionName: cfg.FirestoreCollection,
		}, client, log)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("stores: %w", err)
		}
		return s, nil

	case config.BackendMemory:
		log.Warn().Msg("in-memory cache: records are lost on restart")
		return cache.NewMemoryStore(), nil
	}
	return nil, &config.ConfigurationError{Var: "CACHE_BACKEND", Err: fmt.Errorf("%w: %q", config.ErrInvalid, cfg.CacheBackend)}
}
