package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("cache: record not found")
	// ErrForbiddenEndpoint is returned for endpoints outside the allow-list.
	ErrForbiddenEndpoint = errors.New("cache: endpoint not allowed")
)

// StoreError wraps a persistence failure with the operation and key.
//
//	var se *cache.StoreError
//	if errors.As(err, &se) {
//		log.Printf("%s %s failed: %v", se.Op, se.Key, se.Err)
//	}
type StoreError struct {
	// Op is "get" or "put".
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the backend error.
func (e *StoreError) Unwrap() error { return e.Err }
