package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving a sealing key from a passphrase.
const (
	kdfMemory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	kdfIterations  = 2         // Iteration count
	kdfParallelism = 1         // Number of threads
	kdfKeyLength   = 32        // AES-256 key length
)

// kdfSalt is a fixed domain-separation salt. The passphrase here is a
// machine-held secret (not a user password), so a stable salt is what lets
// two processes sharing one cache derive the same key.
var kdfSalt = []byte("myinvois.tokencache.v1")

// KeySize is the required key length in bytes for NewSealer.
const KeySize = 32

// ErrSealedTooShort reports a sealed value shorter than its nonce prefix.
var ErrSealedTooShort = errors.New("cryptox: sealed value too short")

// Sealer provides authenticated encryption (AES-256-GCM) for values placed
// in shared caches, so access tokens never sit in Redis or on disk in the
// clear. A Sealer is safe for concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a raw 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptox: sealing key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// NewSealerFromPassphrase derives the sealing key from a passphrase using
// Argon2id and builds a Sealer from it. The same passphrase always derives
// the same key.
func NewSealerFromPassphrase(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("cryptox: passphrase must not be empty")
	}

	key := argon2.IDKey([]byte(passphrase), kdfSalt, kdfIterations, kdfMemory, kdfParallelism, kdfKeyLength)
	return NewSealer(key)
}

// Seal encrypts and authenticates plaintext. The output format is
// base64(12-byte nonce || ciphertext || 16-byte auth tag), one string so it
// can be stored anywhere a token string could.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and auth tag to the nonce prefix
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal, verifying its authentication tag.
// Tampered or foreign-key ciphertexts fail.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("cryptox: sealed value is not base64: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrSealedTooShort
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decryption failed: %w", err)
	}

	return plaintext, nil
}
