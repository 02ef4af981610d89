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

// AnnouncementRepository defines the interface for announcement
// persistence.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, orgID, id string) (*Announcement, error)
	List(ctx context.Context, orgID string, publishedOnly bool) ([]Announcement, error)
	Update(ctx context.Context, orgID, id, title, body string) error
	Publish(ctx context.Context, orgID, id string, at time.Time) error
	Delete(ctx context.Context, orgID, id string) error
}

// SQLiteAnnouncementRepository implements AnnouncementRepository using
// SQLite.
type SQLiteAnnouncementRepository struct {
	db DBTX
}

// NewAnnouncementRepository creates a new SQLite-backed announcement
// repository.
func NewAnnouncementRepository(db DBTX) *SQLiteAnnouncementRepository {
	return &SQLiteAnnouncementRepository{db: db}
}

const announcementColumns = "id, org_id, title, body, status, created_by, created_at, published_at"

// Create inserts a new announcement as a draft.
func (r *SQLiteAnnouncementRepository) Create(ctx context.Context, a *Announcement) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Body = strings.TrimSpace(a.Body)
	if a.Title == "" || a.Body == "" {
		return fmt.Errorf("%w: title and body are required", ErrValidation)
	}
	if a.ID == "" {
		a.ID = "ann-" + uuid.NewString()[:8]
	}
	a.Status = StatusDraft

	now := time.Now().UTC().Format(time.RFC3339)
	a.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (`+announcementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		a.ID, a.OrgID, a.Title, a.Body, string(a.Status), nullString(a.CreatedBy), now,
	)
	if err != nil {
		return fmt.Errorf("creating announcement: %w", err)
	}
	return nil
}

// GetByID retrieves an announcement within the organization.
func (r *SQLiteAnnouncementRepository) GetByID(ctx context.Context, orgID, id string) (*Announcement, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements WHERE id = ? AND org_id = ?", id, orgID)
	return scanAnnouncement(row)
}

// List returns the organization's announcements, newest first. With
// publishedOnly (the student view) drafts are filtered out.
func (r *SQLiteAnnouncementRepository) List(ctx context.Context, orgID string, publishedOnly bool) ([]Announcement, error) {
	query := "SELECT " + announcementColumns + " FROM announcements WHERE org_id = ?"
	args := []any{orgID}
	if publishedOnly {
		query += " AND status = ?"
		args = append(args, string(StatusPublished))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	defer rows.Close()

	var announcements []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		announcements = append(announcements, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating announcements: %w", err)
	}

	if announcements == nil {
		announcements = []Announcement{}
	}
	return announcements, nil
}

// Update edits a draft or published announcement's text.
func (r *SQLiteAnnouncementRepository) Update(ctx context.Context, orgID, id, title, body string) error {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return fmt.Errorf("%w: title and body are required", ErrValidation)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE announcements SET title = ?, body = ? WHERE id = ? AND org_id = ?",
		title, body, id, orgID)
	if err != nil {
		return fmt.Errorf("updating announcement: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// Publish flips a draft to published. Publishing twice keeps the first
// published_at.
func (r *SQLiteAnnouncementRepository) Publish(ctx context.Context, orgID, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE announcements SET status = ?, published_at = ?
		 WHERE id = ? AND org_id = ? AND status = ?`,
		string(StatusPublished), at.UTC().Format(time.RFC3339),
		id, orgID, string(StatusDraft))
	if err != nil {
		return fmt.Errorf("publishing announcement: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		// Either missing or already published; disambiguate for the API.
		if _, err := r.GetByID(ctx, orgID, id); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// Delete removes an announcement.
func (r *SQLiteAnnouncementRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM announcements WHERE id = ? AND org_id = ?", id, orgID)
	if err != nil {
		return fmt.Errorf("deleting announcement: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// scanAnnouncement scans an announcement from any scanner.
func scanAnnouncement(s scanner) (*Announcement, error) {
	var a Announcement
	var status string
	var createdBy, publishedAt sql.NullString
	var createdAt string

	err := s.Scan(&a.ID, &a.OrgID, &a.Title, &a.Body, &status, &createdBy,
		&createdAt, &publishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("scanning announcement: %w", err)
	}

	a.Status = AnnouncementStatus(status)
	a.CreatedBy = createdBy.String
	a.PublishedAt = parseNullTime(publishedAt)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &a, nil
}
