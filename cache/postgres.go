package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DefaultTable is the table holding cache rows.
const DefaultTable = "api_cache"

// pgxConn is the subset of *pgxpool.Pool the store uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps one row per key in a Postgres table.
type PostgresStore struct {
	conn   pgxConn
	pool   *pgxpool.Pool
	table  string
	logger zerolog.Logger

	selectSQL string
	upsertSQL string
}

// NewPostgresStore wraps an open pool. table may be schema-qualified; an
// empty table selects DefaultTable. The store closes the pool on Close.
func NewPostgresStore(pool *pgxpool.Pool, table string, logger zerolog.Logger) *PostgresStore {
	s := newPostgresStore(pool, table, logger)
	s.pool = pool
	return s
}

func newPostgresStore(conn pgxConn, table string, logger zerolog.Logger) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return &PostgresStore{
		conn:   conn,
		table:  ident,
		logger: logger.With().Str("component", "PostgresStore").Logger(),
		selectSQL: fmt.Sprintf(
			`SELECT body, content_type, etag, cached_at, ttl_ms FROM %s WHERE key = $1`, ident),
		upsertSQL: fmt.Sprintf(`INSERT INTO %s (key, body, content_type, etag, cached_at, ttl_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE SET
	body = EXCLUDED.body,
	content_type = EXCLUDED.content_type,
	etag = EXCLUDED.etag,
	cached_at = EXCLUDED.cached_at,
	ttl_ms = EXCLUDED.ttl_ms`, ident),
	}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key          text PRIMARY KEY,
	body         bytea NOT NULL,
	content_type text NOT NULL DEFAULT 'application/json',
	etag         text,
	cached_at    timestamptz NOT NULL,
	ttl_ms       bigint NOT NULL
)`, s.table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	var (
		body        []byte
		contentType string
		etag        pgtype.Text
		cachedAt    time.Time
		ttlMillis   int64
	)
	err := s.conn.QueryRow(ctx, s.selectSQL, key).Scan(&body, &contentType, &etag, &cachedAt, &ttlMillis)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to read cache row.")
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	return &Record{
		Key:         key,
		Body:        body,
		ContentType: contentTypeOrDefault(contentType),
		Validator:   etag.String,
		CachedAt:    cachedAt,
		TTL:         time.Duration(ttlMillis) * time.Millisecond,
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec *Record) error {
	etag := pgtype.Text{String: rec.Validator, Valid: rec.Validator != ""}
	_, err := s.conn.Exec(ctx, s.upsertSQL,
		rec.Key, rec.Body, contentTypeOrDefault(rec.ContentType), etag, rec.CachedAt.UTC(), rec.TTL.Milliseconds())
	if err != nil {
		s.logger.Error().Err(err).Str("key", rec.Key).Msg("Failed to upsert cache row.")
		return &StoreError{Op: "put", Key: rec.Key, Err: err}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
