package cryptox_test

import (
	"testing"

	"github.com/merbau/myinvois/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := cryptox.Fingerprint("client-id", "C1234567890")
	b := cryptox.Fingerprint("client-id", "C1234567890")
	require.Equal(t, a, b)
	require.Len(t, a, 43)
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	base := cryptox.Fingerprint("client-id", "C1234567890")

	require.NotEqual(t, base, cryptox.Fingerprint("client-id", "C0000000000"))
	require.NotEqual(t, base, cryptox.Fingerprint("other-client", "C1234567890"))
	require.NotEqual(t, base, cryptox.Fingerprint("client-id"))
}

func TestFingerprintPartBoundaries(t *testing.T) {
	// Joining must not be ambiguous across part boundaries
	require.NotEqual(t, cryptox.Fingerprint("ab", "c"), cryptox.Fingerprint("a", "bc"))
}
