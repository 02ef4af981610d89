package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRepository defines the interface for refresh token persistence.
// Raw token values never reach this layer; callers pass hashes only.
type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) (int64, error)
	ListActiveByAccount(ctx context.Context, accountID string, now time.Time) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteForAccount(ctx context.Context, accountID string) (int64, error)
}

// SQLiteTokenRepository implements TokenRepository using SQLite. It
// works over DBTX so rotation runs inside the service's transaction.
type SQLiteTokenRepository struct {
	db DBTX
}

// NewTokenRepository creates a new SQLite-backed token repository.
func NewTokenRepository(db DBTX) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

const tokenColumns = "id, org_id, account_id, token_hash, expires_at, revoked_at, created_at"

// Create inserts a new refresh token row. The ID is generated if empty.
func (r *SQLiteTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	if token.ID == "" {
		token.ID = "rt-" + uuid.NewString()[:16]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	token.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID, token.OrgID, token.AccountID, token.TokenHash,
		token.ExpiresAt.UTC().Format(time.RFC3339),
		nullTime(token.RevokedAt), now,
	)
	if err != nil {
		return fmt.Errorf("creating refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token by its storage hash. An unknown
// hash is indistinguishable from a forged token and maps to
// ErrTokenInvalid.
func (r *SQLiteTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var t RefreshToken
	var revokedAt sql.NullString
	var expiresAt, createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash = ?", tokenHash,
	).Scan(&t.ID, &t.OrgID, &t.AccountID, &t.TokenHash, &expiresAt, &revokedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("getting refresh token by hash: %w", err)
	}

	t.RevokedAt = parseNullTime(revokedAt)
	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// Revoke marks a token revoked. Revoking an already-revoked token keeps
// the original revocation time, so the call is idempotent.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL",
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// RevokeIfActive revokes the token only if it is not already revoked,
// reporting whether this call did the revoking. The conditional UPDATE
// is the arbitration point for concurrent refreshes: of two racing
// rotations, exactly one sees true.
func (r *SQLiteTokenRepository) RevokeIfActive(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL",
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return false, fmt.Errorf("revoking token: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows == 1, nil
}

// RevokeAllForAccount revokes every outstanding token for an account.
// Used on soft delete and admin removal. Returns the number revoked.
func (r *SQLiteTokenRepository) RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE account_id = ? AND revoked_at IS NULL",
		at.UTC().Format(time.RFC3339), accountID)
	if err != nil {
		return 0, fmt.Errorf("revoking tokens for account: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}

// ListActiveByAccount returns all non-revoked, non-expired tokens for
// an account, newest first.
func (r *SQLiteTokenRepository) ListActiveByAccount(ctx context.Context, accountID string, now time.Time) ([]RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens
		 WHERE account_id = ? AND revoked_at IS NULL AND expires_at > ?
		 ORDER BY created_at DESC`,
		accountID, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []RefreshToken
	for rows.Next() {
		var t RefreshToken
		var revokedAt sql.NullString
		var expiresAt, createdAt string

		if err := rows.Scan(&t.ID, &t.OrgID, &t.AccountID, &t.TokenHash,
			&expiresAt, &revokedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}

		t.RevokedAt = parseNullTime(revokedAt)
		t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}

	if tokens == nil {
		tokens = []RefreshToken{}
	}
	return tokens, nil
}

// DeleteExpired removes tokens past their expiry, freeing storage.
// Returns the number of deleted rows.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ?",
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// DeleteForAccount removes all token rows for an account. The purge job
// calls this before deleting the account row.
func (r *SQLiteTokenRepository) DeleteForAccount(ctx context.Context, accountID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE account_id = ?", accountID)
	if err != nil {
		return 0, fmt.Errorf("deleting tokens for account: %w", err)
	}
	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
