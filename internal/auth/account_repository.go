package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByOrgEmail(ctx context.Context, orgID, email string) (*Account, error)
	List(ctx context.Context, orgID string, filter AccountFilter) ([]Account, error)
	UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	SetActive(ctx context.Context, id string, active bool) error
	SoftDelete(ctx context.Context, id string, deletedAt, purgeAfter time.Time) error
	ListPurgeEligible(ctx context.Context, now time.Time, limit int) ([]Account, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// AccountFilter narrows List results.
type AccountFilter struct {
	// IncludeDeleted keeps soft-deleted rows in the result.
	IncludeDeleted bool
	// Role filters to a single role when non-empty.
	Role Role
}

// SQLiteAccountRepository implements AccountRepository using SQLite.
// It works over DBTX so the service can run it inside a transaction.
type SQLiteAccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new SQLite-backed account repository.
func NewAccountRepository(db DBTX) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

const accountColumns = "id, org_id, email, display_name, avatar_url, password_hash, role, is_active, deleted_at, purge_after, created_at"

// Create inserts a new account. The ID is generated if empty, the email
// is normalized, and a (org_id, email) collision returns
// ErrDuplicateAccount. Soft-deleted rows still hold their email until
// the purge job removes them.
func (r *SQLiteAccountRepository) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = "usr-" + uuid.NewString()[:8]
	}
	account.Email = NormalizeEmail(account.Email)

	now := time.Now().UTC().Format(time.RFC3339)
	account.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.OrgID, account.Email, account.DisplayName,
		nullString(account.AvatarURL), account.PasswordHash,
		string(account.Role), boolToInt(account.IsActive),
		nullTime(account.DeletedAt), nullTime(account.PurgeAfter), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its unique ID.
func (r *SQLiteAccountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// GetByOrgEmail retrieves an account by its tenant-scoped email key.
// Soft-deleted rows are returned too; callers decide what a deleted
// account means for their flow.
func (r *SQLiteAccountRepository) GetByOrgEmail(ctx context.Context, orgID, email string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE org_id = ? AND email = ?",
		orgID, NormalizeEmail(email))
	return scanAccount(row)
}

// List returns an organization's accounts ordered by creation date.
func (r *SQLiteAccountRepository) List(ctx context.Context, orgID string, filter AccountFilter) ([]Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE org_id = ?"
	args := []any{orgID}
	if !filter.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if filter.Role != "" {
		query += " AND role = ?"
		args = append(args, string(filter.Role))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

// UpdateProfile changes the display name and avatar of an account.
func (r *SQLiteAccountRepository) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET display_name = ?, avatar_url = ? WHERE id = ?",
		displayName, nullString(avatarURL), id)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return requireRow(result, ErrAccountNotFound)
}

// UpdateRole changes an account's role. The access tokens already in
// flight keep the old role claim; the resolver rejects them on the next
// request and the client recovers via refresh.
func (r *SQLiteAccountRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	if !IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET role = ? WHERE id = ?", string(role), id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return requireRow(result, ErrAccountNotFound)
}

// SetActive enables or disables an account.
func (r *SQLiteAccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET is_active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("setting active flag: %w", err)
	}
	return requireRow(result, ErrAccountNotFound)
}

// SoftDelete marks an account deleted and schedules it for purge. The
// row keeps existing until purge_after elapses so the removal window
// is auditable.
func (r *SQLiteAccountRepository) SoftDelete(ctx context.Context, id string, deletedAt, purgeAfter time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ?, purge_after = ?, is_active = 0
		 WHERE id = ? AND deleted_at IS NULL`,
		deletedAt.UTC().Format(time.RFC3339),
		purgeAfter.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("soft deleting account: %w", err)
	}
	return requireRow(result, ErrAccountNotFound)
}

// ListPurgeEligible returns inactive, soft-deleted accounts whose
// retention window has elapsed, oldest first.
func (r *SQLiteAccountRepository) ListPurgeEligible(ctx context.Context, now time.Time, limit int) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE is_active = 0 AND deleted_at IS NOT NULL AND purge_after IS NOT NULL AND purge_after <= ?
		 ORDER BY purge_after ASC LIMIT ?`,
		now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing purge-eligible accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purge-eligible accounts: %w", err)
	}

	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

// Delete removes an account row permanently. Only the purge job calls
// this; user-facing removal is SoftDelete.
func (r *SQLiteAccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return requireRow(result, ErrAccountNotFound)
}

// Count returns the total number of accounts across all organizations.
func (r *SQLiteAccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return count, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanAccount scans an account from any scanner (Row or Rows).
func scanAccount(s scanner) (*Account, error) {
	var a Account
	var avatarURL, deletedAt, purgeAfter sql.NullString
	var role string
	var isActive int
	var createdAt string

	err := s.Scan(&a.ID, &a.OrgID, &a.Email, &a.DisplayName, &avatarURL,
		&a.PasswordHash, &role, &isActive, &deletedAt, &purgeAfter, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	a.Role = Role(role)
	a.IsActive = isActive != 0
	if avatarURL.Valid {
		a.AvatarURL = avatarURL.String
	}
	a.DeletedAt = parseNullTime(deletedAt)
	a.PurgeAfter = parseNullTime(purgeAfter)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// parseNullTime parses a nullable RFC3339 column into *time.Time.
func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// requireRow converts a zero-rows UPDATE or DELETE into notFound.
func requireRow(result sql.Result, notFound error) error {
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return notFound
	}
	return nil
}
