package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltOptions configures a BoltStore.
type BoltOptions struct {
	// Bucket is the name of the Bolt bucket to use, default "api_cache".
	Bucket string
	// Timeout bounds waiting for the file lock, default 1s.
	Timeout time.Duration
}

// BoltStore keeps records in a single bbolt file.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, opts BoltOptions) (*BoltStore, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	bucket := []byte(DefaultTable)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (*Record, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errors.New("bucket missing")
		}
		if v := b.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	if data == nil {
		return nil, ErrNotFound
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Err: fmt.Errorf("decode record: %w", err)}
	}
	return rec, nil
}

func (s *BoltStore) Put(_ context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return &StoreError{Op: "put", Key: rec.Key, Err: fmt.Errorf("encode record: %w", err)}
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(rec.Key), data)
	})
	if err != nil {
		return &StoreError{Op: "put", Key: rec.Key, Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
