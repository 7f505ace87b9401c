package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/internal/config"
	"github.com/briangreenhill/ytcache/internal/jobs"
	"github.com/briangreenhill/ytcache/internal/proxy"
	"github.com/briangreenhill/ytcache/internal/stores"
	"github.com/briangreenhill/ytcache/internal/warm"
	"github.com/briangreenhill/ytcache/youtube"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.RedisAddr == "" {
		logger.Fatal().Err(&config.ConfigurationError{Var: "REDIS_ADDR", Err: config.ErrMissing}).Msg("invalid configuration")
	}
	logger = logger.Level(cfg.Level())

	store, err := stores.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("open cache store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close cache store")
		}
	}()

	yt, err := youtube.New(cfg.YTKey,
		youtube.WithBaseURL(cfg.YTAPIBase),
		youtube.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("youtube client")
	}

	// Workers share the coalescing pipeline: a channel warm and a batch of
	// single-request warms often overlap.
	svc, err := proxy.New(proxy.Options{
		Store:    store,
		Upstream: yt,
		Policy:   cache.Policy{Long: cfg.TTLLong, Short: cfg.TTLShort},
		Coalesce: true,
		// Headroom over the upstream call for the cache write.
		RefreshTimeout: 2 * cfg.UpstreamTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("proxy")
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			jobs.QueueWarm: 10,
			"default":      5,
		},
		Logger: asynqLogger{logger.With().Str("component", "asynq").Logger()},
	})
	mux := asynq.NewServeMux()
	warm.New(svc, logger).Register(mux)

	logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		return
	}
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{ l zerolog.Logger }

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(sprint(args)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(sprint(args)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(sprint(args)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(sprint(args)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(sprint(args)) }

func sprint(args []interface{}) string { return fmt.Sprint(args...) }
