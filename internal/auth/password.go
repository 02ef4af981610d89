package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for password hashing.
const bcryptCost = 12

// Accepted password length range for new credentials.
const (
	minPasswordLength = 8
	maxPasswordLength = 200
)

// ValidatePassword checks a candidate password against the accepted
// length range.
func ValidatePassword(password string) error {
	if n := len(password); n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters",
			ErrValidation, minPasswordLength, maxPasswordLength)
	}
	return nil
}

// preDigest maps a password of any length onto a fixed 44-byte string so
// bcrypt's 72-byte input truncation never applies. SHA-256 then base64,
// so the digest contains no NUL bytes.
func preDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// HashPassword hashes a plaintext password with bcrypt over a SHA-256
// pre-digest and returns the standard bcrypt encoded form.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(preDigest(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored hash.
// Any failure, including a malformed stored hash, reads as a mismatch;
// verification can never error its way past authentication.
func VerifyPassword(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), preDigest(password)) == nil
}
