package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It is meant for tests and
// single-instance development; records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return &rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec *Record) error {
	cp := *rec
	cp.Body = append([]byte(nil), rec.Body...)
	cp.ContentType = contentTypeOrDefault(cp.ContentType)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = cp
	return nil
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error { return nil }
