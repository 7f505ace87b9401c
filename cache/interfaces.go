// Package cache provides the persistent response cache behind the proxy:
// records keyed by a normalized request, a per-endpoint TTL policy and
// freshness classification.
package cache

import (
	"context"
	"time"
)

// DefaultContentType is assumed when upstream does not declare one.
const DefaultContentType = "application/json"

// Record is one cached upstream response. Records are overwritten on every
// fetch or revalidation and never deleted; a stale record stays available as
// a revalidation basis.
type Record struct {
	Key         string
	Body        []byte
	ContentType string
	// Validator is the upstream ETag, empty when upstream sent none.
	Validator string
	CachedAt  time.Time
	// TTL is frozen at write time from the endpoint policy.
	TTL time.Duration
}

// Reader looks up records.
type Reader interface {
	// Get returns the record stored under key, ErrNotFound when there is
	// none, or a *StoreError when the backend fails.
	Get(ctx context.Context, key string) (*Record, error)
}

// Writer persists records.
type Writer interface {
	// Put upserts rec, replacing any record with the same key.
	Put(ctx context.Context, rec *Record) error
}

// ReadWriter combines both cache operations
type ReadWriter interface {
	Reader
	Writer
}

// Store is a cache backend that owns resources.
type Store interface {
	ReadWriter
	Close() error
}
