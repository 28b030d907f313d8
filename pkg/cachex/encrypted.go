package cachex

import (
	"context"
	"time"

	"github.com/merbau/myinvois/pkg/cryptox"
)

// Encrypted decorates a Cache so values are sealed with AES-256-GCM before
// they reach the backing store. A value that fails to open (tampered, or
// written under a rotated passphrase) is treated as a cache miss and
// evicted, never surfaced as an error.
type Encrypted struct {
	inner  Cache
	sealer *cryptox.Sealer
}

// NewEncrypted wraps inner with the given sealer.
func NewEncrypted(inner Cache, sealer *cryptox.Sealer) *Encrypted {
	return &Encrypted{inner: inner, sealer: sealer}
}

// Get implements Cache.
func (e *Encrypted) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := e.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}

	plaintext, err := e.sealer.Open(sealed)
	if err != nil {
		// Unreadable ciphertext counts as stale.
		_ = e.inner.Forget(ctx, key)
		return "", false, nil
	}

	return string(plaintext), true, nil
}

// Put implements Cache.
func (e *Encrypted) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	sealed, err := e.sealer.Seal([]byte(value))
	if err != nil {
		return err
	}
	return e.inner.Put(ctx, key, sealed, ttl)
}

// Forget implements Cache.
func (e *Encrypted) Forget(ctx context.Context, key string) error {
	return e.inner.Forget(ctx, key)
}
