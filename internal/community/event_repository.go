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

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, orgID, id string) (*Event, error)
	List(ctx context.Context, orgID string) ([]Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, orgID, id string) error
}

// SQLiteEventRepository implements EventRepository using SQLite.
type SQLiteEventRepository struct {
	db DBTX
}

// NewEventRepository creates a new SQLite-backed event repository.
func NewEventRepository(db DBTX) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

const eventColumns = "id, org_id, name, location, description, starts_at, created_by, created_at, updated_at"

// Create inserts a new event. The ID is generated if empty.
func (r *SQLiteEventRepository) Create(ctx context.Context, e *Event) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	e.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		e.ID, e.OrgID, e.Name, nullString(e.Location), nullString(e.Description),
		nullTime(e.StartsAt), nullString(e.CreatedBy), now,
	)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// GetByID retrieves an event within the organization.
func (r *SQLiteEventRepository) GetByID(ctx context.Context, orgID, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ? AND org_id = ?", id, orgID)
	return scanEvent(row)
}

// List returns the organization's events, soonest start first, events
// without a start time last.
func (r *SQLiteEventRepository) List(ctx context.Context, orgID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE org_id = ?
		 ORDER BY starts_at IS NULL, starts_at ASC, created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// Update modifies an event's mutable fields.
func (r *SQLiteEventRepository) Update(ctx context.Context, e *Event) error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET name = ?, location = ?, description = ?, starts_at = ?, updated_at = ?
		 WHERE id = ? AND org_id = ?`,
		name, nullString(e.Location), nullString(e.Description),
		nullTime(e.StartsAt), now, e.ID, e.OrgID)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes an event.
func (r *SQLiteEventRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM events WHERE id = ? AND org_id = ?", id, orgID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrEventNotFound
	}
	return nil
}

// scanEvent scans an event from any scanner (Row or Rows).
func scanEvent(s scanner) (*Event, error) {
	var e Event
	var location, description, startsAt, createdBy, updatedAt sql.NullString
	var createdAt string

	err := s.Scan(&e.ID, &e.OrgID, &e.Name, &location, &description,
		&startsAt, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	if location.Valid {
		e.Location = location.String
	}
	if description.Valid {
		e.Description = description.String
	}
	e.CreatedBy = createdBy.String
	e.StartsAt = parseNullTime(startsAt)
	e.UpdatedAt = parseNullTime(updatedAt)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &e, nil
}
