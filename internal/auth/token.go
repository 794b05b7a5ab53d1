package auth

import (
	"crypto/rand"
	"encoding/hex"
)

const tokenBytes = 24

// NewToken returns a 192-bit random hex string used as a bearer token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
