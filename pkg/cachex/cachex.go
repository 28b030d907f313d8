// Package cachex provides the key-value cache the SDK stores issued access
// tokens in. The interface deliberately stays tiny so any store with TTL
// semantics can back it: the in-process Memory cache is the default, Redis
// covers deployments where several workers share one client credential, and
// Encrypted wraps either so tokens never rest in the clear.
package cachex

import (
	"context"
	"time"
)

// Cache is a string key-value store with per-entry TTL.
//
// Get reports absence through ok=false rather than an error; expired entries
// count as absent. Implementations provide their own atomicity for single
// operations but no cross-operation locking; the SDK serializes its own
// read-then-write sequences.
type Cache interface {
	// Get returns the value stored under key, or ok=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put stores value under key for the given TTL. A non-positive TTL
	// stores nothing (the entry would already be expired).
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Forget removes key. Removing an absent key is not an error.
	Forget(ctx context.Context, key string) error
}
