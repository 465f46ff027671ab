// Package kv defines the narrow persistence contract the pledge store
// depends on: versioned get/put over opaque bytes plus delete. Any
// durable key-value or object store can sit behind it.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports that the key has no stored value.
	ErrNotFound = errors.New("kv: key not found")
	// ErrVersionMismatch reports that a conditional Put lost a race:
	// the stored version no longer matches the token the caller read.
	ErrVersionMismatch = errors.New("kv: version mismatch")
	// ErrUnavailable reports a backend fault unrelated to the payload.
	ErrUnavailable = errors.New("kv: backend unavailable")
)

// Record is a stored value with its version token.
type Record struct {
	Value   []byte
	Version int64
}

// Store is the backend contract. Put with version 0 creates the key
// and fails with ErrVersionMismatch if it already exists; any other
// version performs a compare-and-swap against the stored token.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, value []byte, version int64) error
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable; used by readiness checks.
	Ping(ctx context.Context) error
	Close() error
}
