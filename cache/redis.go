package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces cache keys, default "ytcache:".
	Prefix string
}

// RedisStore keeps JSON-encoded records in Redis. Keys carry no Redis
// expiry: staleness is judged from the record, and stale records stay
// available for revalidation.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ytcache:"
	}
	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")
	return &RedisStore{
		client: rdb,
		prefix: prefix,
		logger: logger.With().Str("component", "RedisStore").Logger(),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Unexpected Redis error during get.")
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: fmt.Errorf("decode record: %w", err)}
	}
	return rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return &StoreError{Op: "put", Key: rec.Key, Err: fmt.Errorf("encode record: %w", err)}
	}
	if err := s.client.Set(ctx, s.prefix+rec.Key, data, 0).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", rec.Key).Msg("Failed to set record in Redis.")
		return &StoreError{Op: "put", Key: rec.Key, Err: err}
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
