package api

import (
	"encoding/json"
	"net/http"

	"github.com/campusnav/campus-core/internal/audit"
	"github.com/campusnav/campus-core/internal/auth"
)

// registerOrgRequest is the request body for POST /orgs/register.
type registerOrgRequest struct {
	Name          string   `json:"name"`
	Domains       []string `json:"domains"`
	AvatarURL     string   `json:"avatar_url"`
	AdminEmail    string   `json:"admin_email"`
	AdminName     string   `json:"admin_name"`
	AdminPassword string   `json:"admin_password"`
}

// registerOrgResponse is the response body for POST /orgs/register.
type registerOrgResponse struct {
	Organization *auth.Organization `json:"organization"`
	Admin        *auth.Account      `json:"admin"`
	Tokens       *auth.TokenPair    `json:"tokens"`
}

// handleListOrgs returns the public organization directory, name-ordered.
func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.auth.ListPublicOrgs(r.Context())
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		writeInternalError(w, "failed to list organizations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orgs": orgs, "count": len(orgs)})
}

// handleRegisterOrg creates an organization, its domain bindings, and
// the founding admin account in one transaction.
func (s *Server) handleRegisterOrg(w http.ResponseWriter, r *http.Request) {
	var req registerOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	org, admin, tokens, err := s.auth.RegisterOrganization(r.Context(), auth.OrgRegistration{
		Name:          req.Name,
		Domains:       req.Domains,
		AvatarURL:     req.AvatarURL,
		AdminEmail:    req.AdminEmail,
		AdminName:     req.AdminName,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		s.writeServiceError(w, err, "organization registration failed")
		return
	}

	s.auditLog(audit.ActionOrgRegistered, "org", org.ID, admin.ID, org.ID, map[string]any{
		"name":    org.Name,
		"domains": org.AllowedEmailDomains,
	})

	writeJSON(w, http.StatusCreated, registerOrgResponse{
		Organization: org,
		Admin:        admin,
		Tokens:       tokens,
	})
}
