package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role represents an authorisation tier within an organization.
type Role string

const (
	// RoleStudent is the default tier for self-registered members.
	// Students read community content and manage their own reviews.
	RoleStudent Role = "student"

	// RoleAdmin manages the organization: member accounts, locations,
	// announcements, events. Created at org registration or by promotion.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleStudent, RoleAdmin}

// IsValidRole returns true if the role is one an account may hold.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// AccountStatus is the derived lifecycle state of an account.
type AccountStatus string

const (
	// StatusActive means the account can authenticate.
	StatusActive AccountStatus = "active"

	// StatusDeactivated means the account is soft-deleted or disabled and
	// cannot authenticate, but its row still exists.
	StatusDeactivated AccountStatus = "deactivated"

	// StatusPurgeEligible means the retention window has elapsed and the
	// purge job may remove the row permanently.
	StatusPurgeEligible AccountStatus = "purge_eligible"
)

// Organization is a tenant. Accounts, tokens, and community content are
// all scoped to an organization; nothing crosses the boundary.
type Organization struct {
	ID string `json:"id"`
	// Name is the display name of the institution.
	Name string `json:"name"`
	// AllowedEmailDomains is the admin-facing policy list shown on the
	// public directory. Tenant routing uses domain_bindings, not this.
	AllowedEmailDomains []string  `json:"allowed_email_domains"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	IsPublic            bool      `json:"is_public"`
	CreatedAt           time.Time `json:"created_at"`
}

// DomainAllowed reports whether the policy list admits the domain. An
// empty policy admits any domain that routes to the organization.
func (o *Organization) DomainAllowed(domain string) bool {
	if len(o.AllowedEmailDomains) == 0 {
		return true
	}
	domain = NormalizeDomain(domain)
	for _, d := range o.AllowedEmailDomains {
		if NormalizeDomain(d) == domain {
			return true
		}
	}
	return false
}

// DomainBinding routes an email domain to an organization. The domain
// column is globally unique, so a domain belongs to at most one tenant.
type DomainBinding struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// Account represents a member of an organization.
type Account struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	PasswordHash string     `json:"-"` // never serialised
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	PurgeAfter   *time.Time `json:"purge_after,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Status derives the lifecycle state from the row's flags. Callers pass
// the current time so the decision is deterministic under test.
func (a *Account) Status(now time.Time) AccountStatus {
	if a.DeletedAt != nil || !a.IsActive {
		if a.PurgeAfter != nil && !now.Before(*a.PurgeAfter) {
			return StatusPurgeEligible
		}
		return StatusDeactivated
	}
	return StatusActive
}

// RefreshToken is the stored half of a refresh credential. Only the
// HMAC hash of the raw secret is persisted.
type RefreshToken struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	AccountID string     `json:"account_id"`
	TokenHash string     `json:"-"` // never serialised
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the token is still usable at the given time.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// CurrentUser is the immutable identity attached to a request after the
// resolver has verified the access token against the live account row.
type CurrentUser struct {
	AccountID   string `json:"id"`
	OrgID       string `json:"org_id"`
	Role        Role   `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// TokenPair is the result of a successful register, login, or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are built over it so the service can run multi-step
// flows inside a single transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NormalizeEmail lowercases and trims an email address. Two addresses
// that normalize equal are the same account key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain extracts the normalized domain part of an email address.
func EmailDomain(email string) (string, error) {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return NormalizeDomain(email[at+1:]), nil
}

// NormalizeDomain lowercases, trims, and strips a trailing dot from a
// domain so "Uni.EDU." and "uni.edu" bind to the same organization.
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrValidation          = errors.New("invalid input")
	ErrDomainNotRecognized = errors.New("email domain is not registered to any organization")
	ErrDomainNotAllowed    = errors.New("email domain is not permitted by the organization")
	ErrDomainTaken         = errors.New("domain is already registered to another organization")
	ErrDuplicateAccount    = errors.New("an account with this email already exists")
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenIssuer         = errors.New("token issuer mismatch")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrAccountRemoved      = errors.New("account has been removed")
	ErrOrgNotFound         = errors.New("organization not found")
	ErrOrgMismatch         = errors.New("token organization does not match account")
	ErrRoleMismatch        = errors.New("token role does not match account")
	ErrForbidden           = errors.New("insufficient permissions")
)

// Helper functions shared by the repositories.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
