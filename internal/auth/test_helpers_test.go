package auth

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema plus
// the locations table the purge tests reference. The database file is
// cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
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

		CREATE TABLE domain_bindings (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
		) STRICT;

		CREATE UNIQUE INDEX uq_domain_bindings_domain ON domain_bindings(domain);

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

		CREATE UNIQUE INDEX uq_accounts_org_email ON accounts(org_id, email);

		CREATE TABLE refresh_tokens (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			revoked_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
		) STRICT;

		CREATE UNIQUE INDEX uq_refresh_tokens_hash ON refresh_tokens(token_hash);

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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	return db
}

// testIssuer returns a token issuer with short, deterministic settings.
func testIssuer() *TokenIssuer {
	return NewTokenIssuer(
		"test-secret-test-secret-test-secret!",
		"test-pepper-test-pepper-test-pepper!",
		"campus-core-test",
		15*time.Minute,
		30*24*time.Hour,
	)
}

// testService wires a service over a fresh test database.
func testService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(db, testIssuer(), 30*24*time.Hour, logger), db
}

// seedTestOrg inserts an organization bound to the given domains.
func seedTestOrg(t *testing.T, db *sql.DB, name string, domains ...string) *Organization {
	t.Helper()

	org := &Organization{Name: name, IsPublic: true}
	if err := NewOrgRepository(db).Create(context.Background(), org, domains); err != nil {
		t.Fatalf("seeding test org %s: %v", name, err)
	}
	return org
}

// seedTestAccount inserts an account with a known password.
func seedTestAccount(t *testing.T, db *sql.DB, orgID, email string, role Role) *Account {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	account := &Account{
		OrgID:        orgID,
		Email:        email,
		DisplayName:  email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := NewAccountRepository(db).Create(context.Background(), account); err != nil {
		t.Fatalf("creating test account %s: %v", email, err)
	}
	return account
}

// mustRegister runs Register and fails the test on error.
func mustRegister(t *testing.T, svc *Service, email string) (*Account, *TokenPair) {
	t.Helper()
	account, pair, err := svc.Register(context.Background(), RegisterParams{
		Email:       email,
		DisplayName: "Test Student",
		Password:    "test-password",
	})
	if err != nil {
		t.Fatalf("registering %s: %v", email, err)
	}
	return account, pair
}
