package community

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Location is a campus spot (library, cafe, study room) members can
// review.
type Location struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Description string     `json:"description,omitempty"`
	CreatedBy   string     `json:"created_by"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	// AverageRating and ReviewCount are aggregates computed on read.
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Review is a member's rating of a location. One review per member per
// location; edits update in place.
type Review struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	LocationID string     `json:"location_id"`
	AccountID  string     `json:"account_id"`
	Rating     int        `json:"rating"`
	Body       string     `json:"body,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// AnnouncementStatus is the publication state of an announcement.
type AnnouncementStatus string

const (
	// StatusDraft is visible to admins only.
	StatusDraft AnnouncementStatus = "draft"
	// StatusPublished is visible to every member of the organization.
	StatusPublished AnnouncementStatus = "published"
)

// Announcement is an org-wide notice. Admins draft and publish;
// students only ever see published ones.
type Announcement struct {
	ID          string             `json:"id"`
	OrgID       string             `json:"org_id"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Status      AnnouncementStatus `json:"status"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	PublishedAt *time.Time         `json:"published_at,omitempty"`
}

// RequestStatus is the moderation state of a location request.
type RequestStatus string

const (
	// RequestPending awaits an admin decision.
	RequestPending RequestStatus = "pending"
	// RequestApproved produced a real location.
	RequestApproved RequestStatus = "approved"
	// RequestDenied was rejected with a reason.
	RequestDenied RequestStatus = "denied"
)

// LocationRequest is a student submission proposing a new location.
// Approval copies its fields into a location row; the request itself is
// kept as a moderation record either way.
type LocationRequest struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"org_id"`
	Name        string        `json:"name"`
	Address     string        `json:"address"`
	Description string        `json:"description,omitempty"`
	Status      RequestStatus `json:"status"`
	AdminNotes  string        `json:"admin_notes,omitempty"`
	RequestedBy string        `json:"requested_by"`
	ReviewedBy  string        `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Event is a scheduled org gathering.
type Event struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Sentinel errors for community operations.
var (
	ErrLocationNotFound     = errors.New("location not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrDuplicateReview      = errors.New("location already reviewed by this account")
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrRequestNotFound      = errors.New("location request not found")
	ErrRequestDecided       = errors.New("location request already decided")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrNotOwner             = errors.New("not the owner of this resource")
	ErrValidation           = errors.New("invalid input")
)

// Helpers shared by the repositories.

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

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}
