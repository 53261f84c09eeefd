// Package contextstore adds at-rest sealing for sensitive context-entry
// categories before they reach the file-backed store (spec §3.8, §6.3),
// the way the teacher's security.go protects sensitive resources behind an
// attenuated token rather than storing them in the clear.
package contextstore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// sealedCategories lists the context categories (spec §3.8) sensitive
// enough to seal at rest. Category names are compared case-sensitively
// against the registry's Category enum.
var sealedCategories = map[string]bool{
	"CustomerNote": true,
	"Decision":     true,
	"Strategic":    true,
}

// ErrNoKey is returned by Seal/Unseal when no 32-byte secret was configured.
var ErrNoKey = errors.New("contextstore: no sealing key configured")

// Sealer seals and unseals context-entry bodies with nacl/secretbox under a
// fixed 32-byte key. A nil or zero-value Sealer has no key: Seal and Unseal
// return ErrNoKey. Deployments that don't configure a key pass a nil
// *Sealer to FilePersister, which then writes every entry unsealed.
type Sealer struct {
	key *[32]byte
}

// NewSealer builds a Sealer from a 32-byte secret. A key of any other
// length is an error.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("contextstore: sealing key must be 32 bytes, got %d", len(secret))
	}
	var key [32]byte
	copy(key[:], secret)
	return &Sealer{key: &key}, nil
}

// ShouldSeal reports whether category is sensitive enough to seal.
func ShouldSeal(category string) bool {
	return sealedCategories[category]
}

// Seal encrypts plaintext and returns a base64 envelope (nonce||ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil || s.key == nil {
		return "", ErrNoKey
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("contextstore: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal reverses Seal.
func (s *Sealer) Unseal(envelope string) (string, error) {
	if s == nil || s.key == nil {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("contextstore: decode sealed envelope: %w", err)
	}
	if len(raw) < 24 {
		return "", errors.New("contextstore: sealed envelope too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, s.key)
	if !ok {
		return "", errors.New("contextstore: unseal failed (wrong key or corrupted data)")
	}
	return string(plain), nil
}
