// Package auth implements the credential store: salted slow password
// hashing and verification, plus session token minting.
package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes  = 16
	iterations = 120000
	digestLen  = 64
)

// HashPassword derives a PBKDF2-SHA512 digest of the password under a
// fresh random salt and returns it as "salt:digest" (both hex).
func HashPassword(password string) string {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(err)
	}
	saltHex := hex.EncodeToString(salt)
	digest := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, digestLen, sha512.New)
	return saltHex + ":" + hex.EncodeToString(digest)
}

// VerifyPassword re-derives the digest with the stored salt and compares
// in constant time. Any malformed record verifies false.
func VerifyPassword(password, record string) bool {
	saltHex, expectedHex, ok := strings.Cut(record, ":")
	if !ok || saltHex == "" || expectedHex == "" {
		return false
	}
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}
	actual := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, digestLen, sha512.New)
	return subtle.ConstantTimeCompare(expected, actual) == 1
}
