package cache

import (
	"encoding/json"
	"time"
)

// entry is the JSON form of a Record used by the key-value backends.
type entry struct {
	Key         string    `json:"key"`
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type"`
	ETag        string    `json:"etag,omitempty"`
	CachedAt    time.Time `json:"cached_at"`
	TTLMillis   int64     `json:"ttl_ms"`
}

func encodeRecord(rec *Record) ([]byte, error) {
	return json.Marshal(entry{
		Key:         rec.Key,
		Body:        rec.Body,
		ContentType: contentTypeOrDefault(rec.ContentType),
		ETag:        rec.Validator,
		CachedAt:    rec.CachedAt.UTC(),
		TTLMillis:   rec.TTL.Milliseconds(),
	})
}

func decodeRecord(data []byte) (*Record, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &Record{
		Key:         e.Key,
		Body:        e.Body,
		ContentType: contentTypeOrDefault(e.ContentType),
		Validator:   e.ETag,
		CachedAt:    e.CachedAt,
		TTL:         time.Duration(e.TTLMillis) * time.Millisecond,
	}, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return DefaultContentType
	}
	return ct
}
