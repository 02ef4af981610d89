package community

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReviewRepository defines the interface for review persistence.
type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, orgID, id string) (*Review, error)
	ListByLocation(ctx context.Context, orgID, locationID string) ([]Review, error)
	Update(ctx context.Context, orgID, id, accountID string, rating int, body string) error
	Delete(ctx context.Context, orgID, id string) error
}

// SQLiteReviewRepository implements ReviewRepository using SQLite.
type SQLiteReviewRepository struct {
	db DBTX
}

// NewReviewRepository creates a new SQLite-backed review repository.
func NewReviewRepository(db DBTX) *SQLiteReviewRepository {
	return &SQLiteReviewRepository{db: db}
}

const reviewColumns = "id, org_id, location_id, account_id, rating, body, created_at, updated_at"

// Create inserts a review. A second review by the same account for the
// same location hits the unique index and returns ErrDuplicateReview;
// the caller updates in place instead.
func (r *SQLiteReviewRepository) Create(ctx context.Context, review *Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}
	if review.ID == "" {
		review.ID = "rev-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	review.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		review.ID, review.OrgID, review.LocationID, review.AccountID,
		review.Rating, nullString(review.Body), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("creating review: %w", err)
	}
	return nil
}

// GetByID retrieves a review within the organization.
func (r *SQLiteReviewRepository) GetByID(ctx context.Context, orgID, id string) (*Review, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id = ? AND org_id = ?", id, orgID)
	return scanReview(row)
}

// ListByLocation returns a location's reviews, newest first.
func (r *SQLiteReviewRepository) ListByLocation(ctx context.Context, orgID, locationID string) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE location_id = ? AND org_id = ? ORDER BY created_at DESC`,
		locationID, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}

	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}

// Update edits a review in place. The accountID guard keeps members
// from editing each other's reviews.
func (r *SQLiteReviewRepository) Update(ctx context.Context, orgID, id, accountID string, rating int, body string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, body = ?, updated_at = ?
		 WHERE id = ? AND org_id = ? AND account_id = ?`,
		rating, nullString(body), now, id, orgID, accountID)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Delete removes a review. Ownership is checked by the caller: members
// delete their own, admins delete any in their organization.
func (r *SQLiteReviewRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM reviews WHERE id = ? AND org_id = ?", id, orgID)
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// scanReview scans a review from any scanner (Row or Rows).
func scanReview(s scanner) (*Review, error) {
	var rv Review
	var body, updatedAt sql.NullString
	var createdAt string

	err := s.Scan(&rv.ID, &rv.OrgID, &rv.LocationID, &rv.AccountID,
		&rv.Rating, &body, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("scanning review: %w", err)
	}

	if body.Valid {
		rv.Body = body.String
	}
	rv.UpdatedAt = parseNullTime(updatedAt)
	rv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &rv, nil
}
