package community

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// FavoriteRepository defines the interface for favorite persistence.
type FavoriteRepository interface {
	Add(ctx context.Context, accountID, locationID string) error
	Remove(ctx context.Context, accountID, locationID string) error
	ListLocations(ctx context.Context, orgID, accountID string) ([]Location, error)
}

// SQLiteFavoriteRepository implements FavoriteRepository using SQLite.
type SQLiteFavoriteRepository struct {
	db DBTX
}

// NewFavoriteRepository creates a new SQLite-backed favorite repository.
func NewFavoriteRepository(db DBTX) *SQLiteFavoriteRepository {
	return &SQLiteFavoriteRepository{db: db}
}

// Add marks a location as a favorite of the account. Adding the same
// location twice is a no-op.
func (r *SQLiteFavoriteRepository) Add(ctx context.Context, accountID, locationID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_favorites (id, account_id, location_id) VALUES (?, ?, ?)`,
		"fav-"+uuid.NewString()[:8], accountID, locationID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

// Remove unmarks a favorite. Removing one that was never set is a
// no-op.
func (r *SQLiteFavoriteRepository) Remove(ctx context.Context, accountID, locationID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE account_id = ? AND location_id = ?`,
		accountID, locationID,
	)
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

// ListLocations returns the account's favorited locations that are
// still active in the organization, with review aggregates, ordered by
// name. Favorites pointing at deactivated locations are simply hidden.
func (r *SQLiteFavoriteRepository) ListLocations(ctx context.Context, orgID, accountID string) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx,
		locationSelect+` JOIN user_favorites f ON f.location_id = l.id
		 WHERE f.account_id = ? AND l.org_id = ? AND l.is_active = 1
		 GROUP BY l.id ORDER BY l.name ASC`,
		accountID, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorites: %w", err)
	}

	if locations == nil {
		locations = []Location{}
	}
	return locations, nil
}
