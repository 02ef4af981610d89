package auth

import (
	"context"
	"errors"
	"testing"
)

func TestOrgRepository_CreateAndResolve(t *testing.T) {
	db := testDB(t)
	repo := NewOrgRepository(db)

	org := &Organization{Name: "Example University", IsPublic: true}
	err := repo.Create(context.Background(), org, []string{"Uni.EDU", "students.uni.edu", "uni.edu"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if org.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	// Domains are normalized and deduplicated.
	if len(org.AllowedEmailDomains) != 2 {
		t.Fatalf("allowed domains = %v, want 2 entries", org.AllowedEmailDomains)
	}

	tests := []struct {
		name   string
		domain string
	}{
		{"exact", "uni.edu"},
		{"uppercase", "UNI.EDU"},
		{"trailing dot", "uni.edu."},
		{"whitespace", "  uni.edu  "},
		{"subdomain binding", "students.uni.edu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgID, err := repo.ResolveDomain(context.Background(), tt.domain)
			if err != nil {
				t.Fatalf("ResolveDomain(%q) error = %v", tt.domain, err)
			}
			if orgID != org.ID {
				t.Errorf("ResolveDomain(%q) = %q, want %q", tt.domain, orgID, org.ID)
			}
		})
	}
}

func TestOrgRepository_ResolveDomain_Unknown(t *testing.T) {
	db := testDB(t)

	_, err := NewOrgRepository(db).ResolveDomain(context.Background(), "nowhere.example")
	if !errors.Is(err, ErrDomainNotRecognized) {
		t.Errorf("ResolveDomain() error = %v, want ErrDomainNotRecognized", err)
	}
}

func TestOrgRepository_DomainTaken(t *testing.T) {
	db := testDB(t)
	repo := NewOrgRepository(db)

	seedTestOrg(t, db, "First University", "uni.edu")

	err := repo.Create(context.Background(), &Organization{Name: "Second University"}, []string{"other.edu", "uni.edu"})
	if !errors.Is(err, ErrDomainTaken) {
		t.Fatalf("Create() error = %v, want ErrDomainTaken", err)
	}
}

func TestOrgRepository_GetByID(t *testing.T) {
	db := testDB(t)
	repo := NewOrgRepository(db)

	seeded := seedTestOrg(t, db, "Example University", "uni.edu")

	got, err := repo.GetByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Example University" {
		t.Errorf("name = %q, want Example University", got.Name)
	}
	if len(got.AllowedEmailDomains) != 1 || got.AllowedEmailDomains[0] != "uni.edu" {
		t.Errorf("allowed domains = %v, want [uni.edu]", got.AllowedEmailDomains)
	}

	if _, err := repo.GetByID(context.Background(), "org-missing"); !errors.Is(err, ErrOrgNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrOrgNotFound", err)
	}
}

func TestOrgRepository_ListPublic(t *testing.T) {
	db := testDB(t)
	repo := NewOrgRepository(db)

	seedTestOrg(t, db, "Zeta College", "zeta.edu")
	seedTestOrg(t, db, "Alpha University", "alpha.edu")
	hidden := &Organization{Name: "Hidden Institute", IsPublic: false}
	if err := repo.Create(context.Background(), hidden, []string{"hidden.edu"}); err != nil {
		t.Fatalf("creating hidden org: %v", err)
	}

	orgs, err := repo.ListPublic(context.Background())
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(orgs) != 2 {
		t.Fatalf("ListPublic() returned %d orgs, want 2", len(orgs))
	}
	if orgs[0].Name != "Alpha University" || orgs[1].Name != "Zeta College" {
		t.Errorf("ListPublic() order = [%s, %s], want name order", orgs[0].Name, orgs[1].Name)
	}
}

func TestOrgRepository_DomainDrift(t *testing.T) {
	db := testDB(t)
	repo := NewOrgRepository(db)

	org := seedTestOrg(t, db, "Example University", "uni.edu", "alumni.uni.edu")

	// Bindings and policy agree right after creation.
	unbound, unlisted, err := repo.DomainDrift(context.Background(), org.ID)
	if err != nil {
		t.Fatalf("DomainDrift() error = %v", err)
	}
	if len(unbound) != 0 || len(unlisted) != 0 {
		t.Fatalf("fresh org should have no drift, got unbound=%v unlisted=%v", unbound, unlisted)
	}

	// Manufacture drift: a binding the policy does not list.
	_, err = db.Exec(
		"INSERT INTO domain_bindings (id, org_id, domain, created_at) VALUES ('dom-drift', ?, 'stray.uni.edu', '2026-01-01T00:00:00Z')",
		org.ID)
	if err != nil {
		t.Fatalf("inserting stray binding: %v", err)
	}

	_, unlisted, err = repo.DomainDrift(context.Background(), org.ID)
	if err != nil {
		t.Fatalf("DomainDrift() error = %v", err)
	}
	if len(unlisted) != 1 || unlisted[0] != "stray.uni.edu" {
		t.Errorf("unlisted = %v, want [stray.uni.edu]", unlisted)
	}
}

func TestOrganization_DomainAllowed(t *testing.T) {
	org := &Organization{AllowedEmailDomains: []string{"uni.edu"}}

	if !org.DomainAllowed("UNI.EDU") {
		t.Error("DomainAllowed should normalize before comparing")
	}
	if org.DomainAllowed("other.edu") {
		t.Error("DomainAllowed should reject a domain outside the policy")
	}

	open := &Organization{}
	if !open.DomainAllowed("anything.edu") {
		t.Error("an empty policy admits any routed domain")
	}
}
