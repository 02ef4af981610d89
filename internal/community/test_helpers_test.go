package community

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the community schema
// plus the account tables it references.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "community-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			allowed_email_domains TEXT,
			avatar_url TEXT,
			is_public INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			email TEXT NOT NULL,
			display_name TEXT NOT NULL,
			avatar_url TEXT,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'student',
			is_active INTEGER NOT NULL DEFAULT 1,
			deleted_at TEXT,
			purge_after TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE locations (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			description TEXT,
			created_by TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT,
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by) REFERENCES accounts(id) ON DELETE SET NULL
		) STRICT;

		CREATE TABLE reviews (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			location_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			body TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT,
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE,
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
		) STRICT;

		CREATE UNIQUE INDEX uq_reviews_location_account ON reviews(location_id, account_id);

		CREATE TABLE user_favorites (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			location_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE,
			FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
		) STRICT;

		CREATE UNIQUE INDEX uq_user_favorites ON user_favorites(account_id, location_id);

		CREATE TABLE location_requests (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			admin_notes TEXT,
			requested_by TEXT,
			reviewed_by TEXT,
			reviewed_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (requested_by) REFERENCES accounts(id) ON DELETE SET NULL,
			FOREIGN KEY (reviewed_by) REFERENCES accounts(id) ON DELETE SET NULL
		) STRICT;

		CREATE TABLE announcements (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			published_at TEXT,
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by) REFERENCES accounts(id) ON DELETE SET NULL
		) STRICT;

		CREATE TABLE events (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			name TEXT NOT NULL,
			location TEXT,
			description TEXT,
			starts_at TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT,
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by) REFERENCES accounts(id) ON DELETE SET NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	return db
}

// seedOrgAndAccount inserts an organization and one member, returning
// their ids.
func seedOrgAndAccount(t *testing.T, db *sql.DB, orgID, accountID string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO organizations (id, name) VALUES (?, ?);
	`, orgID, "Org "+orgID)
	if err != nil {
		t.Fatalf("seeding org: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO accounts (id, org_id, email, display_name, password_hash)
		VALUES (?, ?, ?, ?, 'hash');
	`, accountID, orgID, accountID+"@test.edu", accountID)
	if err != nil {
		t.Fatalf("seeding account: %v", err)
	}
}

// seedAccount inserts an additional member into an existing org.
func seedAccount(t *testing.T, db *sql.DB, orgID, accountID string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO accounts (id, org_id, email, display_name, password_hash)
		VALUES (?, ?, ?, ?, 'hash');
	`, accountID, orgID, accountID+"@test.edu", accountID)
	if err != nil {
		t.Fatalf("seeding account: %v", err)
	}
}

// seedLocation inserts an active location and returns it.
func seedLocation(t *testing.T, db *sql.DB, orgID, createdBy, name string) *Location {
	t.Helper()

	loc := &Location{
		OrgID:     orgID,
		Name:      name,
		Address:   "1 Campus Way",
		CreatedBy: createdBy,
		IsActive:  true,
	}
	if err := NewLocationRepository(db).Create(context.Background(), loc); err != nil {
		t.Fatalf("seeding location %s: %v", name, err)
	}
	return loc
}
