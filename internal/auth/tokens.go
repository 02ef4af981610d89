package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTypeAccess is the `type` claim value for access tokens. Refresh
// tokens are opaque and never pass through the JWT verifier.
const tokenTypeAccess = "access"

// refreshTokenBytes is the entropy of a raw refresh token (256-bit).
const refreshTokenBytes = 32

// Claims extends the JWT registered claims with tenant and role fields.
// The resolver re-checks both against the live account row, so a stale
// claim is only ever an optimisation hint, never an authority.
type Claims struct {
	jwt.RegisteredClaims
	OrgID     string `json:"org_id"`
	Role      Role   `json:"role"`
	TokenType string `json:"type"`
}

// TokenIssuer mints and verifies access tokens and generates opaque
// refresh tokens. All parameters come from explicit configuration.
type TokenIssuer struct {
	secret     []byte
	pepper     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a token issuer from explicit configuration.
func NewTokenIssuer(secret, pepper, issuer string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		pepper:     []byte(pepper),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (ti *TokenIssuer) AccessTTL() time.Duration { return ti.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (ti *TokenIssuer) RefreshTTL() time.Duration { return ti.refreshTTL }

// IssueAccessToken creates a signed HS256 JWT for the account. The
// token carries the account id as subject plus org and role claims.
func (ti *TokenIssuer) IssueAccessToken(account *Account, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ti.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OrgID:     account.OrgID,
		Role:      account.Role,
		TokenType: tokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken validates signature, algorithm, issuer, expiry, and
// the required claims, returning the parsed claims on success. Expired
// tokens and issuer mismatches surface as distinct sentinels so callers
// can log them apart; everything else is ErrTokenInvalid.
func (ti *TokenIssuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: %w", ErrTokenIssuer, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.OrgID == "" {
		return nil, fmt.Errorf("%w: missing org_id", ErrTokenInvalid)
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: wrong token type %q", ErrTokenInvalid, claims.TokenType)
	}

	return claims, nil
}

// NewRefreshToken creates a cryptographically random opaque refresh
// token. The raw value goes to the client; only its hash is stored.
func (ti *TokenIssuer) NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken computes the storage hash of a raw refresh token:
// HMAC-SHA256 keyed with the server pepper, hex encoded. A database
// leak alone is not enough to forge a token.
func (ti *TokenIssuer) HashRefreshToken(raw string) string {
	mac := hmac.New(sha256.New, ti.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeBearer strips the case-insensitive "Bearer " scheme from an
// Authorization header value and trims whitespace. Some clients prepend
// the scheme to a token that already carries it, so one accidental
// extra prefix is tolerated: at most two prefixes are removed. A bare
// token passes through unchanged.
func NormalizeBearer(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	for i := 0; i < 2; i++ {
		if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			break
		}
		header = strings.TrimSpace(header[len(prefix):])
	}
	return header
}
