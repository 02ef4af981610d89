package community

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventRepository_CreateAndList(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewEventRepository(db)

	later := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	sooner := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	for _, e := range []*Event{
		{OrgID: "org-a", Name: "Career Fair", StartsAt: &later, CreatedBy: "usr-admin"},
		{OrgID: "org-a", Name: "Open Mic", StartsAt: &sooner, CreatedBy: "usr-admin"},
		{OrgID: "org-a", Name: "Unscheduled Meetup", CreatedBy: "usr-admin"},
	} {
		if err := repo.Create(context.Background(), e); err != nil {
			t.Fatalf("Create(%s) error = %v", e.Name, err)
		}
	}

	list, err := repo.List(context.Background(), "org-a")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() = %d rows, want 3", len(list))
	}
	// Soonest first, unscheduled last.
	if list[0].Name != "Open Mic" || list[2].Name != "Unscheduled Meetup" {
		t.Errorf("List() order = [%s, %s, %s]", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestEventRepository_UpdateAndDelete(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewEventRepository(db)

	e := &Event{OrgID: "org-a", Name: "Open Mic", CreatedBy: "usr-admin"}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	when := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	e.Name = "Open Mic Night"
	e.Location = "Student Union"
	e.StartsAt = &when
	if err := repo.Update(context.Background(), e); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(context.Background(), "org-a", e.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Open Mic Night" || got.Location != "Student Union" {
		t.Errorf("updated event = %+v", got)
	}
	if got.StartsAt == nil || !got.StartsAt.Equal(when) {
		t.Errorf("starts_at = %v, want %v", got.StartsAt, when)
	}

	if err := repo.Delete(context.Background(), "org-a", e.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "org-a", e.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("GetByID(deleted) error = %v, want ErrEventNotFound", err)
	}
}

func TestEventRepository_Validation(t *testing.T) {
	db := testDB(t)
	seedOrgAndAccount(t, db, "org-a", "usr-admin")
	repo := NewEventRepository(db)

	if err := repo.Create(context.Background(), &Event{OrgID: "org-a", Name: " ", CreatedBy: "usr-admin"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Create(blank name) error = %v, want ErrValidation", err)
	}
}
