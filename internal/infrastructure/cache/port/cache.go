package port

import (
	"context"
	"time"
)

// Cache defines the contract for the shared coordination store. All of the
// assistant's cross-process state (message queues, locks, mute flags, slot
// holds) lives behind this port, so implementations must be concurrency-safe
// and every method is context-aware.
//
// Values are strings to keep the port free from serialization concerns;
// callers own the encoding.
type Cache interface {
	// Get fetches the value for key. Misses are reported as ("", ErrMiss)
	// so callers can tell them apart from transport errors.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL
	// means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetNX stores value at key only if the key does not already exist.
	// It reports whether the value was written. This is the atomic
	// conditional-set backing locks and dedup flags.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// IncrBy atomically adds delta to the integer stored at key, creating
	// it at zero if absent, and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// RPush appends values to the list stored at key, creating it if absent.
	RPush(ctx context.Context, key string, values ...string) error

	// LRange returns list elements between start and stop inclusive;
	// negative indexes count from the tail, so (0, -1) is the whole list.
	// A missing key yields an empty slice, not an error.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Expire sets or refreshes the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies connectivity with the store backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store client.
	Close() error
}

// ErrMiss signals a cache miss in a typed way so callers can differentiate
// misses from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
