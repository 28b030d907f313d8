package cachex_test

import (
	"context"
	"testing"
	"time"

	"github.com/merbau/myinvois/pkg/cachex"
	"github.com/merbau/myinvois/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestSealer(t *testing.T, passphrase string) *cryptox.Sealer {
	t.Helper()
	sealer, err := cryptox.NewSealerFromPassphrase(passphrase)
	require.NoError(t, err)
	return sealer
}

func TestEncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := cachex.NewMemory()
	cache := cachex.NewEncrypted(inner, newTestSealer(t, "cache-secret"))

	require.NoError(t, cache.Put(ctx, "token", `{"access_token":"abc123"}`, time.Minute))

	// The backing store must only ever see ciphertext
	raw, ok, err := inner.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, raw, "abc123")

	value, ok, err := cache.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"access_token":"abc123"}`, value)
}

func TestEncryptedWrongPassphraseIsAMiss(t *testing.T) {
	ctx := context.Background()
	inner := cachex.NewMemory()

	writer := cachex.NewEncrypted(inner, newTestSealer(t, "old-passphrase"))
	require.NoError(t, writer.Put(ctx, "token", "secret-token", time.Minute))

	// A rotated passphrase cannot read the old entry: miss, and the stale
	// ciphertext is evicted rather than left to fail forever
	reader := cachex.NewEncrypted(inner, newTestSealer(t, "new-passphrase"))
	_, ok, err := reader.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, _ = inner.Get(ctx, "token")
	require.False(t, ok, "undecryptable entry should be evicted")
}

func TestEncryptedForgetPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := cachex.NewMemory()
	cache := cachex.NewEncrypted(inner, newTestSealer(t, "cache-secret"))

	require.NoError(t, cache.Put(ctx, "token", "v", time.Minute))
	require.NoError(t, cache.Forget(ctx, "token"))

	_, ok, _ := inner.Get(ctx, "token")
	require.False(t, ok)
}
