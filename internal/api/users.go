package api

import (
	"encoding/json"
	"net/http"

	"github.com/campusnav/campus-core/internal/audit"
	"github.com/campusnav/campus-core/internal/auth"
)

// updateProfileRequest is the request body for PATCH /me.
type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// removeUserRequest is the request body for DELETE /users.
type removeUserRequest struct {
	Email string `json:"email"`
}

// handleMe returns the authenticated caller's identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// handleUpdateProfile updates the caller's display name and avatar.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	account, err := s.auth.UpdateProfile(r.Context(), cu.AccountID, req.DisplayName, req.AvatarURL)
	if err != nil {
		s.writeServiceError(w, err, "profile update failed")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// handleListUsers returns the caller's organization members.
//
// Query parameters:
//   - include_deleted: "true" to include soft-deleted members
//   - role: filter to "student" or "admin"
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)

	q := r.URL.Query()
	filter := auth.AccountFilter{
		IncludeDeleted: q.Get("include_deleted") == "true",
		Role:           auth.Role(q.Get("role")),
	}

	accounts, err := s.auth.ListMembers(r.Context(), cu.OrgID, filter)
	if err != nil {
		s.logger.Error("failed to list members", "error", err)
		writeInternalError(w, "failed to list members")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": accounts, "count": len(accounts)})
}

// handleRemoveUser soft-deletes a student account by email. Removal
// revokes every refresh token the account holds; the next protected
// request with any surviving access token is rejected by the resolver.
func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	var req removeUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	cu := currentUser(r)
	account, err := s.auth.SoftDeleteAccount(r.Context(), cu.OrgID, req.Email)
	if err != nil {
		s.writeServiceError(w, err, "account removal failed")
		return
	}

	s.auditLog(audit.ActionAccountRemoved, "account", account.ID, cu.AccountID, cu.OrgID, map[string]any{
		"email": account.Email,
	})

	writeJSON(w, http.StatusOK, account)
}
