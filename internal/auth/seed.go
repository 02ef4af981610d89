package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// seedPasswordBytes is the number of random bytes for a generated
// admin password when the config does not supply one.
const seedPasswordBytes = 16

// SeedParams describe the demo organization created on first boot.
type SeedParams struct {
	OrgName       string
	Domains       []string
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// Seed creates the initial organization and admin account if the
// database holds no organizations yet. When no password is configured
// one is generated and logged once; it must be changed immediately.
// Returns the generated password (empty if seeding was skipped or the
// password came from config).
func (s *Service) Seed(ctx context.Context, p SeedParams) (string, error) {
	count, err := NewOrgRepository(s.db).Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking organization count: %w", err)
	}
	if count > 0 {
		s.logger.Info("organizations exist, skipping seed")
		return "", nil
	}

	generated := ""
	password := p.AdminPassword
	if password == "" {
		b := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		generated = hex.EncodeToString(b)
		password = generated
	}

	org, admin, _, err := s.RegisterOrganization(ctx, OrgRegistration{
		Name:          p.OrgName,
		Domains:       p.Domains,
		AdminEmail:    p.AdminEmail,
		AdminName:     p.AdminName,
		AdminPassword: password,
	})
	if err != nil {
		return "", fmt.Errorf("seeding organization: %w", err)
	}

	if generated != "" {
		s.logger.Warn("seed admin account created",
			"org_id", org.ID,
			"email", admin.Email,
			"password", generated,
			"action_required", "change this password immediately",
		)
	} else {
		s.logger.Info("seed organization created",
			"org_id", org.ID, "email", admin.Email)
	}

	return generated, nil
}
