package kv

import (
	"context"
	"time"
)

// Store is the shared key-value service used for duplicate-request locks,
// rate-limit counters and the availability cache. It is injected as an
// explicit dependency wherever cross-process mutable state is needed.
type Store interface {
	// SetIfAbsent atomically creates key with the given TTL. It returns
	// false when the key already exists.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value for key; ok is false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Incr increments the counter under key and returns the new value.
	// The TTL is applied only when the counter is created, giving a fixed
	// window that hard-resets on expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
