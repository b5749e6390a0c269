package utility

import (
	"crypto/rand"
	"fmt"
)

// idAlphabet has exactly 64 characters, so masking a random byte with 0x3f
// maps onto it without modulo bias.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// RandomID returns a cryptographically random identifier of n characters
// drawn from the URL-safe alphabet [A-Za-z0-9_-].
func RandomID(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid id length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[b&0x3f]
	}
	return string(buf), nil
}
