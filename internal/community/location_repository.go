package community

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocationRepository defines the interface for location persistence.
type LocationRepository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, orgID, id string) (*Location, error)
	List(ctx context.Context, orgID string) ([]Location, error)
	Update(ctx context.Context, loc *Location) error
	Deactivate(ctx context.Context, orgID, id string) error
}

// SQLiteLocationRepository implements LocationRepository using SQLite.
type SQLiteLocationRepository struct {
	db DBTX
}

// NewLocationRepository creates a new SQLite-backed location repository.
func NewLocationRepository(db DBTX) *SQLiteLocationRepository {
	return &SQLiteLocationRepository{db: db}
}

// locationSelect pulls the row plus its review aggregates in one query.
const locationSelect = `
	SELECT l.id, l.org_id, l.name, l.address, l.description, l.created_by,
	       l.is_active, l.created_at, l.updated_at,
	       COALESCE(AVG(CAST(r.rating AS REAL)), 0), COUNT(r.id)
	FROM locations l
	LEFT JOIN reviews r ON r.location_id = l.id`

// Create inserts a new location. The ID is generated if empty.
func (r *SQLiteLocationRepository) Create(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = "loc-" + uuid.NewString()[:8]
	}
	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return fmt.Errorf("%w: location name is required", ErrValidation)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	loc.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, org_id, name, address, description, created_by, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		loc.ID, loc.OrgID, loc.Name, loc.Address, nullString(loc.Description),
		nullString(loc.CreatedBy), boolToInt(loc.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("creating location: %w", err)
	}
	return nil
}

// GetByID retrieves an active location within the organization.
func (r *SQLiteLocationRepository) GetByID(ctx context.Context, orgID, id string) (*Location, error) {
	row := r.db.QueryRowContext(ctx,
		locationSelect+` WHERE l.id = ? AND l.org_id = ? AND l.is_active = 1 GROUP BY l.id`,
		id, orgID)
	loc, err := scanLocation(row)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// List returns the organization's active locations ordered by name.
func (r *SQLiteLocationRepository) List(ctx context.Context, orgID string) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx,
		locationSelect+` WHERE l.org_id = ? AND l.is_active = 1 GROUP BY l.id ORDER BY l.name ASC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
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
		return nil, fmt.Errorf("iterating locations: %w", err)
	}

	if locations == nil {
		locations = []Location{}
	}
	return locations, nil
}

// Update modifies a location's name, address, and description.
func (r *SQLiteLocationRepository) Update(ctx context.Context, loc *Location) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, address = ?, description = ?, updated_at = ?
		 WHERE id = ? AND org_id = ? AND is_active = 1`,
		strings.TrimSpace(loc.Name), loc.Address, nullString(loc.Description), now,
		loc.ID, loc.OrgID,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// Deactivate hides a location without losing its reviews.
func (r *SQLiteLocationRepository) Deactivate(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE locations SET is_active = 0 WHERE id = ? AND org_id = ? AND is_active = 1",
		id, orgID)
	if err != nil {
		return fmt.Errorf("deactivating location: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// scanLocation scans a location row with aggregates from any scanner.
func scanLocation(s scanner) (*Location, error) {
	var l Location
	var description, createdBy, updatedAt sql.NullString
	var isActive int
	var createdAt string

	err := s.Scan(&l.ID, &l.OrgID, &l.Name, &l.Address, &description, &createdBy,
		&isActive, &createdAt, &updatedAt, &l.AverageRating, &l.ReviewCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("scanning location: %w", err)
	}

	l.IsActive = isActive != 0
	if description.Valid {
		l.Description = description.String
	}
	// NULL once the author has been purged.
	l.CreatedBy = createdBy.String
	l.UpdatedAt = parseNullTime(updatedAt)
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
