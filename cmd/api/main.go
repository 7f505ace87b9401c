// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/internal/config"
	appmw "github.com/briangreenhill/ytcache/internal/http/middleware"
	"github.com/briangreenhill/ytcache/internal/http/routes"
	"github.com/briangreenhill/ytcache/internal/proxy"
	"github.com/briangreenhill/ytcache/internal/stores"
	"github.com/briangreenhill/ytcache/youtube"
)

func main() {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger = logger.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache store
	store, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("open cache store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close cache store")
		}
	}()

	// Upstream
	yt, err := youtube.New(cfg.YTKey,
		youtube.WithBaseURL(cfg.YTAPIBase),
		youtube.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("youtube client")
	}

	svc, err := proxy.New(proxy.Options{
		Store:    store,
		Upstream: yt,
		Policy:   cache.Policy{Long: cfg.TTLLong, Short: cfg.TTLShort},
		Coalesce: cfg.Coalesce,
		// Headroom over the upstream call for the cache write.
		RefreshTimeout: 2 * cfg.UpstreamTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("proxy")
	}

	opts := routes.ServerOptions{
		Proxy:  svc,
		CORS:   appmw.CORS{AllowedOrigins: cfg.AllowedOrigins, Strict: cfg.StrictOrigins},
		Logger: logger,
	}
	if cfg.WarmEnabled() {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("close asynq client")
			}
		}()
		opts.Enqueuer = client
		opts.CronSecret = cfg.CronSecret
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("cache warming enabled")
	}
	s := routes.New(opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Port).Str("backend", cfg.CacheBackend).Bool("coalesce", cfg.Coalesce).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		return
	}
	logger.Info().Msg("server stopped")
}
