package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	password := "correct-horse-battery-staple"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$2a$12$") {
		t.Errorf("hash should be bcrypt cost 12, got %q", hash)
	}

	if !VerifyPassword(password, hash) {
		t.Error("VerifyPassword() should return true for correct password")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"empty", "", true},
		{"below minimum", "seven77", true},
		{"at minimum", "eight888", false},
		{"at maximum", strings.Repeat("x", 200), false},
		{"above maximum", strings.Repeat("x", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%d chars) error = %v, wantErr %v", len(tt.password), err, tt.wantErr)
			}
		})
	}
}

func TestHashPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if VerifyPassword("wrong-password", hash) {
		t.Error("VerifyPassword() should return false for wrong password")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	password := "same-password"

	hash1, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should have different salts")
	}
}

func TestHashPassword_LongPasswords(t *testing.T) {
	// bcrypt alone truncates input at 72 bytes. The SHA-256 pre-digest
	// removes that cap: two passwords sharing a 72-byte prefix must not
	// verify against each other's hash.
	prefix := strings.Repeat("a", 72)
	first := prefix + "-first"
	second := prefix + "-second"

	hash, err := HashPassword(first)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !VerifyPassword(first, hash) {
		t.Error("VerifyPassword() should accept the original long password")
	}
	if VerifyPassword(second, hash) {
		t.Error("VerifyPassword() should reject a password differing past byte 72")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not bcrypt", "plaintext"},
		{"wrong scheme", "$argon2id$v=19$m=65536,t=3,p=1$salt$hash"},
		{"truncated", "$2a$12$tooshort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Malformed stored hashes must read as mismatch, never as a
			// bypass.
			if VerifyPassword("password", tt.hash) {
				t.Error("VerifyPassword() should return false for malformed hash")
			}
		})
	}
}
