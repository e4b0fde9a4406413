// Package kv provides a key-value store abstraction for the cache index.
// This allows swapping backends (Valkey/Redis, in-memory, etc.) without
// changing the cache manager implementation.
package kv

import (
	"context"
	"time"
)

// Store defines a minimal key-value interface for index entries.
// Keys are strings, values are byte slices. All operations support TTL.
type Store interface {
	// Set stores a value with the given key and TTL.
	// If TTL is 0, the key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key. Returns ErrNotFound if key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Returns nil if key doesn't exist.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all keys with the given prefix and reports how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Close closes the connection to the store.
	Close() error
}
