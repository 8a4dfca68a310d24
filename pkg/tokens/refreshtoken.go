package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const refreshBytes = 64

// NewRefreshValue returns 64 random bytes, base64 encoded. The value is
// opaque: it carries no claims and is only ever matched by digest.
func NewRefreshValue() (string, error) {
	buf := make([]byte, refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Digest is what the ledger stores and looks refresh values up by.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Prefix is safe to put in logs.
func Prefix(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:8] + "..."
}
