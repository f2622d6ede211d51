// Package auth hashes and checks the manual-confirmation secret. The
// secret is a confirmation gate, not an authentication mechanism; it is
// hashed only so the plaintext never sits in process memory longer than
// startup.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret generates a bcrypt hash of the confirmation secret.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// CheckSecret compares a candidate secret with a bcrypt hash.
func CheckSecret(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
