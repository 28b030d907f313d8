package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a deterministic SHA-256 digest over the given parts,
// base64url-encoded (43 chars). Cache keys are derived this way so client
// IDs and taxpayer TINs never appear verbatim in a shared cache, and logs
// can reference tokens without reproducing them.
//
// Parts are joined with a unit separator so ("ab","c") and ("a","bc")
// fingerprint differently.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
