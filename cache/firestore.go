package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore client.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

type firestoreRecord struct {
	Key         string    `firestore:"key"`
	Body        []byte    `firestore:"body"`
	ContentType string    `firestore:"content_type"`
	ETag        *string   `firestore:"etag"`
	CachedAt    time.Time `firestore:"cached_at"`
	TTLMillis   int64     `firestore:"ttl_ms"`
}

// FirestoreStore keeps one document per key. Cache keys contain '/' and
// other characters Firestore rejects in IDs, so documents are addressed by
// the SHA-256 of the key and carry the key as a field.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreStore wraps an open client. The store closes it on Close.
func NewFirestoreStore(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	collection := cfg.CollectionName
	if collection == "" {
		collection = DefaultTable
	}
	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", collection).Msg("FirestoreStore initialized.")
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

func docID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (*Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to get document from Firestore.")
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	var doc firestoreRecord
	if err := snap.DataTo(&doc); err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: fmt.Errorf("firestore DataTo: %w", err)}
	}
	rec := &Record{
		Key:         key,
		Body:        doc.Body,
		ContentType: contentTypeOrDefault(doc.ContentType),
		CachedAt:    doc.CachedAt,
		TTL:         time.Duration(doc.TTLMillis) * time.Millisecond,
	}
	if doc.ETag != nil {
		rec.Validator = *doc.ETag
	}
	return rec, nil
}

func (s *FirestoreStore) Put(ctx context.Context, rec *Record) error {
	doc := firestoreRecord{
		Key:         rec.Key,
		Body:        rec.Body,
		ContentType: contentTypeOrDefault(rec.ContentType),
		CachedAt:    rec.CachedAt.UTC(),
		TTLMillis:   rec.TTL.Milliseconds(),
	}
	if rec.Validator != "" {
		v := rec.Validator
		doc.ETag = &v
	}
	if _, err := s.client.Collection(s.collection).Doc(docID(rec.Key)).Set(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("key", rec.Key).Msg("Failed to write document to Firestore.")
		return &StoreError{Op: "put", Key: rec.Key, Err: err}
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
