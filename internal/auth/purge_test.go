package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testPurger(t *testing.T) (*Purger, *Service, *sql.DB) {
	t.Helper()
	svc, db := testService(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPurger(db, time.Minute, logger), svc, db
}

func TestPurger_PurgeAccounts(t *testing.T) {
	purger, svc, db := testPurger(t)
	org := seedTestOrg(t, db, "Example University", "uni.edu")

	// A removed account past its retention window, with token rows.
	overdue, overduePair := mustRegister(t, svc, "overdue@uni.edu")
	if _, err := svc.SoftDeleteAccount(context.Background(), org.ID, overdue.Email); err != nil {
		t.Fatalf("soft deleting: %v", err)
	}
	if _, err := db.Exec("UPDATE accounts SET purge_after = ? WHERE id = ?",
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339), overdue.ID); err != nil {
		t.Fatalf("backdating purge_after: %v", err)
	}

	// A removed account still inside its window, and an active one.
	pending, _ := mustRegister(t, svc, "pending@uni.edu")
	if _, err := svc.SoftDeleteAccount(context.Background(), org.ID, pending.Email); err != nil {
		t.Fatalf("soft deleting: %v", err)
	}
	mustRegister(t, svc, "active@uni.edu")

	purged, err := purger.PurgeAccounts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeAccounts() error = %v", err)
	}
	if purged != 1 {
		t.Fatalf("PurgeAccounts() = %d, want 1", purged)
	}

	accounts := NewAccountRepository(db)
	if _, err := accounts.GetByID(context.Background(), overdue.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("overdue account should be gone, got %v", err)
	}
	if _, err := accounts.GetByID(context.Background(), pending.ID); err != nil {
		t.Errorf("pending account should survive, got %v", err)
	}

	// Token rows went with the account row.
	hash := svc.Issuer().HashRefreshToken(overduePair.RefreshToken)
	if _, err := NewTokenRepository(db).GetByHash(context.Background(), hash); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("purged account's token rows should be gone, got %v", err)
	}
}

func TestPurger_PurgeAccounts_AuthorOfContent(t *testing.T) {
	purger, svc, db := testPurger(t)
	org := seedTestOrg(t, db, "Example University", "uni.edu")

	author, _ := mustRegister(t, svc, "author@uni.edu")
	if _, err := db.Exec(
		`INSERT INTO locations (id, org_id, name, address, created_by) VALUES (?, ?, ?, ?, ?)`,
		"loc-1", org.ID, "Library", "1 Campus Way", author.ID); err != nil {
		t.Fatalf("seeding location: %v", err)
	}

	if _, err := svc.SoftDeleteAccount(context.Background(), org.ID, author.Email); err != nil {
		t.Fatalf("soft deleting: %v", err)
	}
	if _, err := db.Exec("UPDATE accounts SET purge_after = ? WHERE id = ?",
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339), author.ID); err != nil {
		t.Fatalf("backdating purge_after: %v", err)
	}

	// Authored content must not block the hard delete.
	purged, err := purger.PurgeAccounts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeAccounts() error = %v", err)
	}
	if purged != 1 {
		t.Fatalf("PurgeAccounts() = %d, want 1", purged)
	}

	// The location outlives its author with the reference cleared.
	var createdBy sql.NullString
	if err := db.QueryRow("SELECT created_by FROM locations WHERE id = 'loc-1'").Scan(&createdBy); err != nil {
		t.Fatalf("reading location: %v", err)
	}
	if createdBy.Valid {
		t.Errorf("created_by = %q, want NULL after author purge", createdBy.String)
	}
}

func TestPurger_PurgeAccounts_EmptyDatabase(t *testing.T) {
	purger, _, _ := testPurger(t)

	purged, err := purger.PurgeAccounts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeAccounts() error = %v", err)
	}
	if purged != 0 {
		t.Errorf("PurgeAccounts() on empty db = %d, want 0", purged)
	}
}

func TestPurger_SweepExpiredTokens(t *testing.T) {
	purger, svc, db := testPurger(t)
	org := seedTestOrg(t, db, "Example University", "uni.edu")
	account := seedTestAccount(t, db, org.ID, "jo@uni.edu", RoleStudent)

	repo := NewTokenRepository(db)
	now := time.Now()
	seedTestToken(t, repo, org.ID, account.ID, "hash-old", now.Add(-time.Hour))
	seedTestToken(t, repo, org.ID, account.ID, "hash-new", now.Add(time.Hour))

	swept, err := purger.SweepExpiredTokens(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepExpiredTokens() error = %v", err)
	}
	if swept != 1 {
		t.Errorf("SweepExpiredTokens() = %d, want 1", swept)
	}

	_ = svc
}

func TestPurger_Run_StopsOnCancel(t *testing.T) {
	purger, _, _ := testPurger(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purger.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purge loop did not stop on context cancel")
	}
}
