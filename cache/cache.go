// Package cache stores serialized check results keyed by source hash.
//
// Checking a snippet is a pure function of its text and the analyzer, so a
// result computed once can be served again for the same key. Two stores are
// provided: an in-process LRU and a Redis-backed store shared between
// server replicas.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value cache with per-entry TTL.
type Store interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A zero ttl uses the store's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases connections held by the store.
	Close() error
}
