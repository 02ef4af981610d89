package auth

import (
	"errors"
	"testing"
	"time"
)

func testAccount() *Account {
	return &Account{
		ID:       "usr-test1234",
		OrgID:    "org-test1234",
		Email:    "jo@uni.edu",
		Role:     RoleStudent,
		IsActive: true,
	}
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	ti := testIssuer()
	now := time.Now()

	signed, expiresAt, err := ti.IssueAccessToken(testAccount(), now)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if got, want := expiresAt, now.Add(15*time.Minute); got.Sub(want).Abs() > time.Second {
		t.Errorf("expiry = %v, want ~%v", got, want)
	}

	claims, err := ti.VerifyAccessToken(signed)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.Subject != "usr-test1234" {
		t.Errorf("subject = %q, want usr-test1234", claims.Subject)
	}
	if claims.OrgID != "org-test1234" {
		t.Errorf("org_id = %q, want org-test1234", claims.OrgID)
	}
	if claims.Role != RoleStudent {
		t.Errorf("role = %q, want student", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Errorf("type = %q, want access", claims.TokenType)
	}
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	ti := testIssuer()

	// Issue a token whose whole lifetime is already in the past.
	signed, _, err := ti.IssueAccessToken(testAccount(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	_, err = ti.VerifyAccessToken(signed)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyAccessToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	signed, _, err := testIssuer().IssueAccessToken(testAccount(), time.Now())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	other := NewTokenIssuer("another-secret-another-secret-secret", "pepper", "campus-core-test", 15*time.Minute, time.Hour)
	_, err = other.VerifyAccessToken(signed)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("VerifyAccessToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyAccessToken_WrongIssuer(t *testing.T) {
	minting := NewTokenIssuer(
		"test-secret-test-secret-test-secret!",
		"test-pepper-test-pepper-test-pepper!",
		"someone-else", 15*time.Minute, time.Hour)

	signed, _, err := minting.IssueAccessToken(testAccount(), time.Now())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	_, err = testIssuer().VerifyAccessToken(signed)
	if !errors.Is(err, ErrTokenIssuer) {
		t.Errorf("VerifyAccessToken() error = %v, want ErrTokenIssuer", err)
	}
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "definitely-not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testIssuer().VerifyAccessToken(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("VerifyAccessToken(%q) error = %v, want ErrTokenInvalid", tt.token, err)
			}
		})
	}
}

func TestNewRefreshToken_Unique(t *testing.T) {
	ti := testIssuer()

	a, err := ti.NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	b, err := ti.NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}

	if a == b {
		t.Error("two refresh tokens should never collide")
	}
	// 32 bytes base64url without padding is 43 characters.
	if len(a) != 43 {
		t.Errorf("refresh token length = %d, want 43", len(a))
	}
}

func TestHashRefreshToken_Properties(t *testing.T) {
	ti := testIssuer()

	h1 := ti.HashRefreshToken("some-token")
	h2 := ti.HashRefreshToken("some-token")
	h3 := ti.HashRefreshToken("other-token")

	if h1 != h2 {
		t.Error("hashing the same token twice should be deterministic")
	}
	if h1 == h3 {
		t.Error("different tokens should hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	// A different pepper produces a different hash for the same token,
	// so a leaked table is useless without the server secret.
	other := NewTokenIssuer("secret", "other-pepper", "iss", time.Minute, time.Hour)
	if other.HashRefreshToken("some-token") == h1 {
		t.Error("hash should depend on the pepper")
	}
}

func TestNormalizeBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard prefix", "Bearer abc123", "abc123"},
		{"lowercase prefix", "bearer abc123", "abc123"},
		{"mixed case", "BeArEr abc123", "abc123"},
		{"bare token", "abc123", "abc123"},
		{"surrounding whitespace", "  Bearer abc123  ", "abc123"},
		{"empty", "", ""},
		{"prefix only", "Bearer ", ""},
		{"accidental double prefix", "Bearer Bearer abc", "abc"},
		{"triple prefix strips only two", "Bearer Bearer Bearer abc", "Bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBearer(tt.header); got != tt.want {
				t.Errorf("NormalizeBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
