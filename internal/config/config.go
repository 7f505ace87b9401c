// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Cache backends accepted in CACHE_BACKEND.
const (
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
	BackendBolt      = "bolt"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

var (
	ErrMissing = errors.New("required but not set")
	ErrInvalid = errors.New("invalid value")
)

// ConfigurationError is fatal at startup: the process must not serve.
type ConfigurationError struct {
	// Var is the environment variable at fault, empty when unknown.
	Var string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Var == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Var, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Config holds all service configuration
type Config struct {
	YTKey     string `env:"YT_KEY"`
	YTAPIBase string `env:"YT_API_BASE" envDefault:"https://www.googleapis.com/youtube/v3"`
	Port      string `env:"PORT" envDefault:"8080"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	StrictOrigins  bool     `env:"STRICT_ORIGINS"`

	CacheBackend string `env:"CACHE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	CacheTable   string `env:"CACHE_TABLE" envDefault:"api_cache"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	BoltPath            string `env:"BOLT_PATH" envDefault:"ytcache.db"`
	FirestoreProject    string `env:"FIRESTORE_PROJECT"`
	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"api_cache"`

	TTLLong         time.Duration `env:"TTL_LONG" envDefault:"6h"`
	TTLShort        time.Duration `env:"TTL_SHORT" envDefault:"1h"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`
	Coalesce        bool          `env:"COALESCE"`

	CronSecret string `env:"CRON_SECRET"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the process environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	return finish(cfg, err)
}

// LoadFrom is Load over an explicit environment.
func LoadFrom(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	return finish(cfg, err)
}

func finish(cfg Config, err error) (Config, error) {
	if err != nil {
		return Config{}, &ConfigurationError{Err: err}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
}

// Validate returns the first *ConfigurationError found.
func (c *Config) Validate() error {
	missing := func(v string) error { return &ConfigurationError{Var: v, Err: ErrMissing} }
	invalid := func(v, format string, args ...any) error {
		return &ConfigurationError{Var: v, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)}
	}

	if c.YTKey == "" {
		return missing("YT_KEY")
	}
	if len(c.AllowedOrigins) == 0 {
		return missing("ALLOWED_ORIGINS")
	}

	switch c.CacheBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return missing("DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return missing("REDIS_ADDR")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return missing("BOLT_PATH")
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return missing("FIRESTORE_PROJECT")
		}
	case BackendMemory:
	default:
		return invalid("CACHE_BACKEND", "%q", c.CacheBackend)
	}

	if c.TTLLong <= 0 {
		return invalid("TTL_LONG", "must be positive, got %s", c.TTLLong)
	}
	if c.TTLShort <= 0 {
		return invalid("TTL_SHORT", "must be positive, got %s", c.TTLShort)
	}
	if c.UpstreamTimeout <= 0 {
		return invalid("UPSTREAM_TIMEOUT", "must be positive, got %s", c.UpstreamTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid("LOG_LEVEL", "%q", c.LogLevel)
	}
	return nil
}

// WarmEnabled reports whether cache warming can be offered: it needs a
// queue and a secret to guard the trigger.
func (c *Config) WarmEnabled() bool {
	return c.CronSecret != "" && c.RedisAddr != ""
}

// Level is the parsed LOG_LEVEL, info when invalid.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
