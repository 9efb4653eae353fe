package catalog

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters kept from the digest.
const FingerprintLength = 16

// Fingerprint returns a truncated SHA256 hex digest of data.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])[:FingerprintLength]
}
