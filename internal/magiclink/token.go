package magiclink

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const rawTokenLen = 64 // hex encoding of 32 random bytes

// GenerateToken returns a fresh raw token and its storable digest. The raw
// token leaves the system exactly once, inside the link handed to the caller.
func GenerateToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken digests a raw token for storage and lookup.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidFormat checks the shape of a presented token before any store hit.
func ValidFormat(raw string) bool {
	if len(raw) != rawTokenLen {
		return false
	}
	for _, c := range raw {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
