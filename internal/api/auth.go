package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusnav/campus-core/internal/audit"
	"github.com/campusnav/campus-core/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the request body for POST /auth/refresh and
// POST /auth/logout. The refresh token travels in the body, never in a
// header or query string.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse is the response body for register and login.
type sessionResponse struct {
	Account *auth.Account   `json:"account"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

// handleRegister creates a student account in the organization that
// owns the email's domain.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	account, tokens, err := s.auth.Register(r.Context(), auth.RegisterParams{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		s.writeServiceError(w, err, "registration failed")
		return
	}

	s.auditLog(audit.ActionAccountRegistered, "account", account.ID, account.ID, account.OrgID, nil)

	writeJSON(w, http.StatusCreated, sessionResponse{Account: account, Tokens: tokens})
}

// handleLogin authenticates an account and returns a token pair. The
// service collapses every credential failure into one sentinel, so all
// of them map to the same 401 body here; only storage errors surface
// as 500.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	account, tokens, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Account: account, Tokens: tokens})
}

// handleRefresh rotates a refresh token and returns a fresh pair.
// Presenting an already-used token is recorded as a replay.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	tokens, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenRevoked) {
			s.auditLog(audit.ActionTokenReplay, "token", "", "", "", nil)
		}
		s.writeServiceError(w, err, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// handleLogout revokes the presented refresh token. Idempotent: a token
// that is already revoked or unknown still yields 204.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeServiceError(w, err, "logout failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
