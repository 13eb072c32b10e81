package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the number of hex characters kept by Short.
const ShortLen = 8

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns a truncated SHA-256 fingerprint of content. It is meant for
// change detection and is not unique; callers must not key on it.
func Short(content string) string {
	return Sum([]byte(content))[:ShortLen]
}
