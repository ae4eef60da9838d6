// Package secret provides helpers for handling credentials without
// leaking them: random key material and stable fingerprints.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters kept in a fingerprint.
const fingerprintLen = 12

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Fingerprint returns a short SHA-256 based identifier for a credential.
// It lets logs correlate a token without revealing it. Empty input yields "".
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

