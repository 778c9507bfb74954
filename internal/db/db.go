// Package db defines the storage contracts of the response cache.
package db

import (
	"context"
	"time"
)

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds opaque values under string keys with an optional expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store is a KVStore with a connection lifecycle.
type Store interface {
	Pinger
	KVStore
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
