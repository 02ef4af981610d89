package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service composes the repositories into the authentication flows.
// Multi-step sequences (register, login, refresh rotation, soft-delete
// cascade) each run inside a single transaction so partial state never
// becomes visible.
type Service struct {
	db        *sql.DB
	issuer    *TokenIssuer
	logger    *slog.Logger
	retention time.Duration
}

// NewService creates the auth service. retention is how long a
// soft-deleted account survives before the purge job may remove it.
func NewService(db *sql.DB, issuer *TokenIssuer, retention time.Duration, logger *slog.Logger) *Service {
	return &Service{db: db, issuer: issuer, logger: logger, retention: retention}
}

// Issuer exposes the token issuer for callers that hash refresh tokens.
func (s *Service) Issuer() *TokenIssuer { return s.issuer }

// RegisterParams are the inputs for self-service account registration.
type RegisterParams struct {
	Email       string
	DisplayName string
	Password    string
}

// Register creates a student account in the organization that owns the
// email's domain and returns it with a fresh token pair. Duplicate
// (org, email) pairs are rejected; the same address may register in a
// different organization.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*Account, *TokenPair, error) {
	email := NormalizeEmail(p.Email)
	domain, err := EmailDomain(email)
	if err != nil {
		return nil, nil, err
	}
	displayName := strings.TrimSpace(p.DisplayName)
	if displayName == "" {
		return nil, nil, fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if err := ValidatePassword(p.Password); err != nil {
		return nil, nil, err
	}

	// Hash before opening the transaction: bcrypt is deliberately slow
	// and must not hold the write lock.
	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning registration transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	orgs := NewOrgRepository(tx)
	orgID, err := orgs.ResolveDomain(ctx, domain)
	if err != nil {
		return nil, nil, err
	}
	org, err := orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	if !org.DomainAllowed(domain) {
		return nil, nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, domain)
	}

	account := &Account{
		OrgID:        org.ID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         RoleStudent,
		IsActive:     true,
	}
	if err := NewAccountRepository(tx).Create(ctx, account); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, tx, account, time.Now())
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing registration: %w", err)
	}

	s.logger.Info("account registered",
		"account_id", account.ID, "org_id", org.ID, "role", account.Role)
	return account, pair, nil
}

// Login authenticates an email/password pair and returns the account
// with a fresh token pair. Unknown domain, unknown account, removed or
// disabled account, and wrong password all collapse into
// ErrInvalidCredentials so the endpoint cannot be used to enumerate
// accounts; the distinction is logged server-side only.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, *TokenPair, error) {
	email = NormalizeEmail(email)
	domain, err := EmailDomain(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning login transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	orgID, err := NewOrgRepository(tx).ResolveDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, ErrDomainNotRecognized) {
			s.logger.Debug("login failed", "reason", "domain not recognized", "domain", domain)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	account, err := NewAccountRepository(tx).GetByOrgEmail(ctx, orgID, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.logger.Debug("login failed", "reason", "account not found", "org_id", orgID)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	switch {
	case account.DeletedAt != nil:
		s.logger.Debug("login failed", "reason", "account removed", "account_id", account.ID)
		return nil, nil, ErrInvalidCredentials
	case !account.IsActive:
		s.logger.Debug("login failed", "reason", "account disabled", "account_id", account.ID)
		return nil, nil, ErrInvalidCredentials
	case !VerifyPassword(password, account.PasswordHash):
		s.logger.Debug("login failed", "reason", "password mismatch", "account_id", account.ID)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, tx, account, time.Now())
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing login: %w", err)
	}

	s.logger.Info("login succeeded", "account_id", account.ID, "org_id", account.OrgID)
	return account, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair,
// revoking the presented token in the same transaction. Of two
// concurrent refreshes with the same token, exactly one succeeds; the
// other sees ErrTokenRevoked. The new access token reflects the stored
// role, so a promotion or demotion propagates here.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}
	hash := s.issuer.HashRefreshToken(rawToken)
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning refresh transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	tokens := NewTokenRepository(tx)
	stored, err := tokens.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if stored.RevokedAt != nil {
		// Reuse of a consumed token. Either a very stale client or a
		// stolen token; callers record an audit event on this sentinel.
		s.logger.Warn("refresh token replay detected",
			"token_id", stored.ID, "account_id", stored.AccountID, "org_id", stored.OrgID)
		return nil, ErrTokenRevoked
	}
	if !now.Before(stored.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	account, err := NewAccountRepository(tx).GetByID(ctx, stored.AccountID)
	if err != nil {
		return nil, err
	}
	switch {
	case account.DeletedAt != nil:
		return nil, ErrAccountRemoved
	case !account.IsActive:
		return nil, ErrAccountDisabled
	case account.OrgID != stored.OrgID:
		return nil, ErrOrgMismatch
	}

	won, err := tokens.RevokeIfActive(ctx, stored.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent refresh consumed the token between our read and
		// the conditional revoke.
		return nil, ErrTokenRevoked
	}

	pair, err := s.issueTokens(ctx, tx, account, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing refresh: %w", err)
	}
	return pair, nil
}

// Logout revokes the presented refresh token. Unknown and already
// revoked tokens are not an error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	tokens := NewTokenRepository(s.db)
	stored, err := tokens.GetByHash(ctx, s.issuer.HashRefreshToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return nil
		}
		return err
	}
	return tokens.Revoke(ctx, stored.ID, time.Now())
}

// CurrentUser resolves a bearer credential into a request identity. It
// verifies the access token, then re-checks the live account row so
// that soft deletion, deactivation, org drift, and role changes take
// effect immediately instead of at token expiry.
func (s *Service) CurrentUser(ctx context.Context, bearer string) (*CurrentUser, error) {
	token := NormalizeBearer(bearer)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := s.issuer.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	account, err := NewAccountRepository(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	switch {
	case account.OrgID != claims.OrgID:
		return nil, ErrOrgMismatch
	case account.DeletedAt != nil:
		return nil, ErrAccountRemoved
	case !account.IsActive:
		return nil, ErrAccountDisabled
	case account.Role != claims.Role:
		return nil, ErrRoleMismatch
	}

	return &CurrentUser{
		AccountID:   account.ID,
		OrgID:       account.OrgID,
		Role:        account.Role,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
	}, nil
}

// RequireAdmin returns ErrForbidden unless the identity holds the admin
// role. Distinct from authentication failures: the caller is known,
// just not allowed.
func (s *Service) RequireAdmin(cu *CurrentUser) error {
	if cu == nil || cu.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// OrgRegistration are the inputs for creating a new organization with
// its founding admin.
type OrgRegistration struct {
	Name          string
	Domains       []string
	AvatarURL     string
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// RegisterOrganization creates the organization, its domain bindings,
// and the founding admin account in one transaction, returning the
// admin's first token pair. A domain already bound elsewhere fails the
// whole registration with ErrDomainTaken.
func (s *Service) RegisterOrganization(ctx context.Context, p OrgRegistration) (*Organization, *Account, *TokenPair, error) {
	name := strings.TrimSpace(p.Name)
	domains := normalizeDomainSet(p.Domains)
	if name == "" || len(domains) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: organization name and at least one domain are required", ErrValidation)
	}

	adminEmail := NormalizeEmail(p.AdminEmail)
	adminDomain, err := EmailDomain(adminEmail)
	if err != nil {
		return nil, nil, nil, err
	}
	allowed := false
	for _, d := range domains {
		if d == adminDomain {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil, nil, fmt.Errorf("%w: admin email must use one of the organization's domains", ErrDomainNotAllowed)
	}
	if err := ValidatePassword(p.AdminPassword); err != nil {
		return nil, nil, nil, err
	}

	hash, err := HashPassword(p.AdminPassword)
	if err != nil {
		return nil, nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("beginning org registration transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	org := &Organization{
		Name:      name,
		AvatarURL: strings.TrimSpace(p.AvatarURL),
		IsPublic:  true,
	}
	if err := NewOrgRepository(tx).Create(ctx, org, domains); err != nil {
		return nil, nil, nil, err
	}

	admin := &Account{
		OrgID:        org.ID,
		Email:        adminEmail,
		DisplayName:  strings.TrimSpace(p.AdminName),
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}
	if err := NewAccountRepository(tx).Create(ctx, admin); err != nil {
		return nil, nil, nil, err
	}

	pair, err := s.issueTokens(ctx, tx, admin, time.Now())
	if err != nil {
		return nil, nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("committing org registration: %w", err)
	}

	s.logger.Info("organization registered",
		"org_id", org.ID, "name", org.Name, "domains", domains, "admin_id", admin.ID)
	return org, admin, pair, nil
}

// SoftDeleteAccount removes a student from the caller's organization:
// the row is marked deleted with a purge deadline and every outstanding
// refresh token is revoked, all in one transaction. Admin accounts
// cannot be removed this way.
func (s *Service) SoftDeleteAccount(ctx context.Context, orgID, email string) (*Account, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning removal transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	accounts := NewAccountRepository(tx)
	account, err := accounts.GetByOrgEmail(ctx, orgID, email)
	if err != nil {
		return nil, err
	}
	if account.Role != RoleStudent {
		return nil, fmt.Errorf("%w: only student accounts can be removed", ErrForbidden)
	}
	if account.DeletedAt != nil {
		return nil, ErrAccountRemoved
	}

	purgeAfter := now.Add(s.retention)
	if err := accounts.SoftDelete(ctx, account.ID, now, purgeAfter); err != nil {
		return nil, err
	}

	revoked, err := NewTokenRepository(tx).RevokeAllForAccount(ctx, account.ID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing removal: %w", err)
	}

	s.logger.Info("account soft deleted",
		"account_id", account.ID, "org_id", orgID,
		"purge_after", purgeAfter.UTC().Format(time.RFC3339),
		"tokens_revoked", revoked)

	deletedAt := now.UTC()
	account.DeletedAt = &deletedAt
	pa := purgeAfter.UTC()
	account.PurgeAfter = &pa
	account.IsActive = false
	return account, nil
}

// Organization returns an organization by id.
func (s *Service) Organization(ctx context.Context, orgID string) (*Organization, error) {
	return NewOrgRepository(s.db).GetByID(ctx, orgID)
}

// ListPublicOrgs returns the public organization directory.
func (s *Service) ListPublicOrgs(ctx context.Context) ([]Organization, error) {
	return NewOrgRepository(s.db).ListPublic(ctx)
}

// ListMembers returns an organization's accounts.
func (s *Service) ListMembers(ctx context.Context, orgID string, filter AccountFilter) ([]Account, error) {
	return NewAccountRepository(s.db).List(ctx, orgID, filter)
}

// UpdateProfile changes the caller's display name and avatar.
func (s *Service) UpdateProfile(ctx context.Context, accountID, displayName, avatarURL string) (*Account, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidation)
	}
	accounts := NewAccountRepository(s.db)
	if err := accounts.UpdateProfile(ctx, accountID, displayName, strings.TrimSpace(avatarURL)); err != nil {
		return nil, err
	}
	return accounts.GetByID(ctx, accountID)
}

// issueTokens mints an access/refresh pair for the account and persists
// the refresh hash through the given DBTX.
func (s *Service) issueTokens(ctx context.Context, db DBTX, account *Account, now time.Time) (*TokenPair, error) {
	access, accessExp, err := s.issuer.IssueAccessToken(account, now)
	if err != nil {
		return nil, err
	}

	raw, err := s.issuer.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	refreshExp := now.Add(s.issuer.RefreshTTL())

	err = NewTokenRepository(db).Create(ctx, &RefreshToken{
		OrgID:     account.OrgID,
		AccountID: account.ID,
		TokenHash: s.issuer.HashRefreshToken(raw),
		ExpiresAt: refreshExp,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     raw,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
