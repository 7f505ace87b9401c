package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"YT_KEY":       "yt-secret",
		"DATABASE_URL": "postgres://localhost/ytcache",
	})
	require.NoError(t, err)

	assert.Equal(t, "yt-secret", cfg.YTKey)
	assert.Equal(t, "https://www.googleapis.com/youtube/v3", cfg.YTAPIBase)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.StrictOrigins)
	assert.Equal(t, BackendPostgres, cfg.CacheBackend)
	assert.Equal(t, "api_cache", cfg.CacheTable)
	assert.Equal(t, 6*time.Hour, cfg.TTLLong)
	assert.Equal(t, time.Hour, cfg.TTLShort)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.Coalesce)
	assert.False(t, cfg.WarmEnabled())
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"YT_KEY":           "k",
		"ALLOWED_ORIGINS":  "https://a.example, https://b.example,,",
		"STRICT_ORIGINS":   "true",
		"CACHE_BACKEND":    "Redis",
		"REDIS_ADDR":       "localhost:6379",
		"REDIS_DB":         "2",
		"TTL_LONG":         "12h",
		"TTL_SHORT":        "10m",
		"UPSTREAM_TIMEOUT": "3s",
		"COALESCE":         "true",
		"CRON_SECRET":      "cron",
		"LOG_LEVEL":        "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.StrictOrigins)
	assert.Equal(t, BackendRedis, cfg.CacheBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 12*time.Hour, cfg.TTLLong)
	assert.Equal(t, 10*time.Minute, cfg.TTLShort)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.Coalesce)
	assert.True(t, cfg.WarmEnabled())
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantVar string
	}{
		{"missing key", map[string]string{"CACHE_BACKEND": "memory"}, "YT_KEY"},
		{"postgres without url", map[string]string{"YT_KEY": "k"}, "DATABASE_URL"},
		{"redis without addr", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "redis"}, "REDIS_ADDR"},
		{"firestore without project", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "firestore"}, "FIRESTORE_PROJECT"},
		{"unknown backend", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "mongo"}, "CACHE_BACKEND"},
		{"empty origins", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "memory", "ALLOWED_ORIGINS": " , "}, "ALLOWED_ORIGINS"},
		{"zero ttl", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "memory", "TTL_SHORT": "0s"}, "TTL_SHORT"},
		{"bad log level", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "memory", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"unparsable duration", map[string]string{"YT_KEY": "k", "CACHE_BACKEND": "memory", "TTL_LONG": "six hours"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantVar, ce.Var)
		})
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("YT_KEY", "from-env")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.YTKey)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.CacheBackend)
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Var: "YT_KEY", Err: ErrMissing}
	assert.Equal(t, "config: YT_KEY: required but not set", err.Error())
	assert.ErrorIs(t, err, ErrMissing)
}
