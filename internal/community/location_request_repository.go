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

// RequestFilter narrows a location request listing.
type RequestFilter struct {
	// RequestedBy limits the listing to one submitter's requests.
	RequestedBy string
	// Status limits the listing to one moderation state.
	Status RequestStatus
}

// LocationRequestRepository defines the interface for the location
// moderation queue.
type LocationRequestRepository interface {
	Create(ctx context.Context, req *LocationRequest) error
	GetByID(ctx context.Context, orgID, id string) (*LocationRequest, error)
	List(ctx context.Context, orgID string, f RequestFilter) ([]LocationRequest, error)
	Approve(ctx context.Context, orgID, id, reviewerID, notes string) (*Location, error)
	Deny(ctx context.Context, orgID, id, reviewerID, notes string) (*LocationRequest, error)
}

// SQLiteLocationRequestRepository implements LocationRequestRepository
// using SQLite. It holds the pool rather than a DBTX because approval
// writes two tables in one transaction.
type SQLiteLocationRequestRepository struct {
	db *sql.DB
}

// NewLocationRequestRepository creates a new SQLite-backed location
// request repository.
func NewLocationRequestRepository(db *sql.DB) *SQLiteLocationRequestRepository {
	return &SQLiteLocationRequestRepository{db: db}
}

const requestColumns = `id, org_id, name, address, description, status,
	admin_notes, requested_by, reviewed_by, reviewed_at, created_at`

// Create inserts a pending request. The ID is generated if empty.
func (r *SQLiteLocationRequestRepository) Create(ctx context.Context, req *LocationRequest) error {
	if req.ID == "" {
		req.ID = "lrq-" + uuid.NewString()[:8]
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Address == "" {
		return fmt.Errorf("%w: name and address are required", ErrValidation)
	}
	req.Status = RequestPending

	now := time.Now().UTC().Format(time.RFC3339)
	req.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_requests (id, org_id, name, address, description, status, requested_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.OrgID, req.Name, req.Address, nullString(req.Description),
		string(req.Status), nullString(req.RequestedBy), now,
	)
	if err != nil {
		return fmt.Errorf("creating location request: %w", err)
	}
	return nil
}

// GetByID retrieves a request within the organization.
func (r *SQLiteLocationRequestRepository) GetByID(ctx context.Context, orgID, id string) (*LocationRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM location_requests WHERE id = ? AND org_id = ?`,
		id, orgID)
	return scanLocationRequest(row)
}

// List returns the organization's requests, newest first.
func (r *SQLiteLocationRequestRepository) List(ctx context.Context, orgID string, f RequestFilter) ([]LocationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM location_requests WHERE org_id = ?`
	args := []any{orgID}
	if f.RequestedBy != "" {
		query += ` AND requested_by = ?`
		args = append(args, f.RequestedBy)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing location requests: %w", err)
	}
	defer rows.Close()

	var requests []LocationRequest
	for rows.Next() {
		req, err := scanLocationRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating location requests: %w", err)
	}

	if requests == nil {
		requests = []LocationRequest{}
	}
	return requests, nil
}

// Approve creates a location from a pending request and marks the
// request approved, in one transaction. The request row is kept as a
// record. Returns the created location.
func (r *SQLiteLocationRequestRepository) Approve(ctx context.Context, orgID, id, reviewerID, notes string) (*Location, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning approval transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM location_requests WHERE id = ? AND org_id = ?`,
		id, orgID)
	req, err := scanLocationRequest(row)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, fmt.Errorf("%w: %s", ErrRequestDecided, req.Status)
	}

	loc := &Location{
		OrgID:       orgID,
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		CreatedBy:   reviewerID,
		IsActive:    true,
	}
	if err := NewLocationRepository(tx).Create(ctx, loc); err != nil {
		return nil, err
	}

	if err := r.decide(ctx, tx, req, RequestApproved, reviewerID, notes); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}
	return loc, nil
}

// Deny rejects a pending request. Notes carry the reason and are
// required.
func (r *SQLiteLocationRequestRepository) Deny(ctx context.Context, orgID, id, reviewerID, notes string) (*LocationRequest, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: a denial reason is required", ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning denial transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM location_requests WHERE id = ? AND org_id = ?`,
		id, orgID)
	req, err := scanLocationRequest(row)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, fmt.Errorf("%w: %s", ErrRequestDecided, req.Status)
	}

	if err := r.decide(ctx, tx, req, RequestDenied, reviewerID, notes); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing denial: %w", err)
	}
	return req, nil
}

// decide records the moderation outcome on the request row and mirrors
// it into the in-memory struct.
func (r *SQLiteLocationRequestRepository) decide(ctx context.Context, tx *sql.Tx, req *LocationRequest, status RequestStatus, reviewerID, notes string) error {
	now := time.Now().UTC()
	notes = strings.TrimSpace(notes)

	_, err := tx.ExecContext(ctx,
		`UPDATE location_requests
		 SET status = ?, admin_notes = ?, reviewed_by = ?, reviewed_at = ?
		 WHERE id = ? AND org_id = ?`,
		string(status), nullString(notes), nullString(reviewerID),
		now.Format(time.RFC3339), req.ID, req.OrgID,
	)
	if err != nil {
		return fmt.Errorf("deciding location request: %w", err)
	}

	req.Status = status
	req.AdminNotes = notes
	req.ReviewedBy = reviewerID
	req.ReviewedAt = &now
	return nil
}

// scanLocationRequest scans a request row from any scanner.
func scanLocationRequest(s scanner) (*LocationRequest, error) {
	var req LocationRequest
	var status string
	var description, adminNotes, requestedBy, reviewedBy, reviewedAt sql.NullString
	var createdAt string

	err := s.Scan(&req.ID, &req.OrgID, &req.Name, &req.Address, &description,
		&status, &adminNotes, &requestedBy, &reviewedBy, &reviewedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("scanning location request: %w", err)
	}

	req.Status = RequestStatus(status)
	req.Description = description.String
	req.AdminNotes = adminNotes.String
	req.RequestedBy = requestedBy.String
	req.ReviewedBy = reviewedBy.String
	req.ReviewedAt = parseNullTime(reviewedAt)
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &req, nil
}
