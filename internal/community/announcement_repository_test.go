package community

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAnnouncementRepository_DraftThenPublish(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewAnnouncementRepository(db)

	a := &Announcement{OrgID: "org-a", Title: "Exam week", Body: "Library open 24h", CreatedBy: "usr-admin"}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Status != StatusDraft {
		t.Errorf("new announcement status = %q, want draft", a.Status)
	}

	// The student view hides drafts.
	published, err := repo.List(context.Background(), "org-a", true)
	if err != nil {
		t.Fatalf("List(publishedOnly) error = %v", err)
	}
	if len(published) != 0 {
		t.Errorf("students should not see drafts, got %d", len(published))
	}

	// The admin view shows everything.
	all, err := repo.List(context.Background(), "org-a", false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("admin view = %d rows, want 1", len(all))
	}

	publishedAt := time.Now()
	if err := repo.Publish(context.Background(), "org-a", a.ID, publishedAt); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got, err := repo.GetByID(context.Background(), "org-a", a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusPublished || got.PublishedAt == nil {
		t.Errorf("published announcement = %+v", got)
	}

	// Re-publishing keeps the original timestamp.
	if err := repo.Publish(context.Background(), "org-a", a.ID, publishedAt.Add(time.Hour)); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	again, err := repo.GetByID(context.Background(), "org-a", a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !again.PublishedAt.Equal(*got.PublishedAt) {
		t.Errorf("published_at changed on re-publish: %v -> %v", got.PublishedAt, again.PublishedAt)
	}

	published, err = repo.List(context.Background(), "org-a", true)
	if err != nil {
		t.Fatalf("List(publishedOnly) error = %v", err)
	}
	if len(published) != 1 {
		t.Errorf("students should now see the announcement, got %d", len(published))
	}
}

func TestAnnouncementRepository_Publish_Missing(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewAnnouncementRepository(db)

	if err := repo.Publish(context.Background(), "org-a", "ann-missing", time.Now()); !errors.Is(err, ErrAnnouncementNotFound) {
		t.Errorf("Publish(missing) error = %v, want ErrAnnouncementNotFound", err)
	}
}

func TestAnnouncementRepository_Validation(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewAnnouncementRepository(db)

	err := repo.Create(context.Background(), &Announcement{OrgID: "org-a", Title: "  ", Body: "text", CreatedBy: "usr-admin"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Create(blank title) error = %v, want ErrValidation", err)
	}
}

func TestAnnouncementRepository_OrgScoping(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-a")
	seedOrgAndAccount(t, db, "org-b", "usr-b")
	repo := NewAnnouncementRepository(db)

	a := &Announcement{OrgID: "org-a", Title: "Notice", Body: "For org-a only", CreatedBy: "usr-a"}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repo.GetByID(context.Background(), "org-b", a.ID); !errors.Is(err, ErrAnnouncementNotFound) {
		t.Errorf("cross-org GetByID() error = %v, want ErrAnnouncementNotFound", err)
	}
	if err := repo.Delete(context.Background(), "org-b", a.ID); !errors.Is(err, ErrAnnouncementNotFound) {
		t.Errorf("cross-org Delete() error = %v, want ErrAnnouncementNotFound", err)
	}
}
