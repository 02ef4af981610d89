package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrgRepository defines the interface for organization persistence and
// domain routing.
type OrgRepository interface {
	Create(ctx context.Context, org *Organization, domains []string) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	ResolveDomain(ctx context.Context, domain string) (string, error)
	ListPublic(ctx context.Context) ([]Organization, error)
	ListBindings(ctx context.Context, orgID string) ([]DomainBinding, error)
	DomainDrift(ctx context.Context, orgID string) (unbound, unlisted []string, err error)
	Count(ctx context.Context) (int, error)
}

// SQLiteOrgRepository implements OrgRepository using SQLite. It works
// over DBTX so the service can run it inside a transaction.
type SQLiteOrgRepository struct {
	db DBTX
}

// NewOrgRepository creates a new SQLite-backed organization repository.
func NewOrgRepository(db DBTX) *SQLiteOrgRepository {
	return &SQLiteOrgRepository{db: db}
}

// Create inserts an organization and binds the given domains to it.
// Domains are normalized and deduplicated first. A domain already bound
// to any organization fails the whole insert with ErrDomainTaken; run
// inside a transaction so the org row does not survive a lost domain.
func (r *SQLiteOrgRepository) Create(ctx context.Context, org *Organization, domains []string) error {
	if org.ID == "" {
		org.ID = "org-" + uuid.NewString()[:8]
	}

	normalized := normalizeDomainSet(domains)
	org.AllowedEmailDomains = normalized

	policy, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encoding domain policy: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	org.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, allowed_email_domains, avatar_url, is_public, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, string(policy), nullString(org.AvatarURL),
		boolToInt(org.IsPublic), now,
	)
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}

	for _, d := range normalized {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO domain_bindings (id, org_id, domain, created_at) VALUES (?, ?, ?, ?)`,
			"dom-"+uuid.NewString()[:8], org.ID, d, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDomainTaken, d)
			}
			return fmt.Errorf("binding domain %s: %w", d, err)
		}
	}

	return nil
}

// GetByID retrieves an organization by its ID.
func (r *SQLiteOrgRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, allowed_email_domains, avatar_url, is_public, created_at
		 FROM organizations WHERE id = ?`, id)
	return scanOrg(row)
}

// ResolveDomain maps a normalized email domain to its organization ID.
// The lookup is a point query on the unique domain_bindings index.
func (r *SQLiteOrgRepository) ResolveDomain(ctx context.Context, domain string) (string, error) {
	var orgID string
	err := r.db.QueryRowContext(ctx,
		"SELECT org_id FROM domain_bindings WHERE domain = ?",
		NormalizeDomain(domain),
	).Scan(&orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDomainNotRecognized
		}
		return "", fmt.Errorf("resolving domain: %w", err)
	}
	return orgID, nil
}

// ListPublic returns all public organizations ordered by name. This
// backs the unauthenticated directory endpoint.
func (r *SQLiteOrgRepository) ListPublic(ctx context.Context) ([]Organization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, allowed_email_domains, avatar_url, is_public, created_at
		 FROM organizations WHERE is_public = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organizations: %w", err)
	}

	if orgs == nil {
		orgs = []Organization{}
	}
	return orgs, nil
}

// ListBindings returns the domain bindings of an organization.
func (r *SQLiteOrgRepository) ListBindings(ctx context.Context, orgID string) ([]DomainBinding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, org_id, domain, created_at FROM domain_bindings
		 WHERE org_id = ? ORDER BY domain ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing domain bindings: %w", err)
	}
	defer rows.Close()

	var bindings []DomainBinding
	for rows.Next() {
		var b DomainBinding
		var createdAt string
		if err := rows.Scan(&b.ID, &b.OrgID, &b.Domain, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning domain binding: %w", err)
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating domain bindings: %w", err)
	}

	if bindings == nil {
		bindings = []DomainBinding{}
	}
	return bindings, nil
}

// DomainDrift compares routing bindings against the allowed-domain
// policy. Routing and policy are separate concerns that are supposed to
// agree; drift is a data-integrity signal, not an error. unbound lists
// policy domains with no binding, unlisted lists bindings the policy
// does not cover.
func (r *SQLiteOrgRepository) DomainDrift(ctx context.Context, orgID string) (unbound, unlisted []string, err error) {
	org, err := r.GetByID(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	bindings, err := r.ListBindings(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}

	bound := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		bound[b.Domain] = true
	}
	listed := make(map[string]bool, len(org.AllowedEmailDomains))
	for _, d := range org.AllowedEmailDomains {
		listed[NormalizeDomain(d)] = true
	}

	for d := range listed {
		if !bound[d] {
			unbound = append(unbound, d)
		}
	}
	for d := range bound {
		if !listed[d] {
			unlisted = append(unlisted, d)
		}
	}
	return unbound, unlisted, nil
}

// Count returns the number of organizations. Used by first-boot seeding.
func (r *SQLiteOrgRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting organizations: %w", err)
	}
	return count, nil
}

// scanOrg scans an organization from any scanner (Row or Rows).
func scanOrg(s scanner) (*Organization, error) {
	var o Organization
	var policy, avatarURL sql.NullString
	var isPublic int
	var createdAt string

	err := s.Scan(&o.ID, &o.Name, &policy, &avatarURL, &isPublic, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("scanning organization: %w", err)
	}

	o.IsPublic = isPublic != 0
	if avatarURL.Valid {
		o.AvatarURL = avatarURL.String
	}
	if policy.Valid && policy.String != "" {
		if err := json.Unmarshal([]byte(policy.String), &o.AllowedEmailDomains); err != nil {
			return nil, fmt.Errorf("decoding domain policy: %w", err)
		}
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &o, nil
}

// normalizeDomainSet normalizes, drops empties, and deduplicates while
// preserving first-seen order.
func normalizeDomainSet(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		n := NormalizeDomain(d)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
