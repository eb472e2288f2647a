// Package shared provides small helpers for random identifiers and wiping
// secrets from memory.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes hex-encoded, so the result is
// 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b. Passwords read from the terminal go through here.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
