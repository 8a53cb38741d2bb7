package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
)

// Stored credentials are HMAC-SHA512(salt, password) pairs: a 64-byte digest
// keyed by a 128-byte per-user random salt.
const (
	PasswordHashSize = sha512.Size
	PasswordSaltSize = 128
)

// CreatePasswordHash generates a fresh random salt and derives the keyed hash
// of the password. The salt is never reused between calls.
func CreatePasswordHash(password string) (hash, salt []byte, err error) {
	salt = make([]byte, PasswordSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil), salt, nil
}

// VerifyPassword recomputes the keyed hash with the stored salt and compares
// it against the stored hash in constant time. Mismatched lengths yield false.
func VerifyPassword(password string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), hash)
}
