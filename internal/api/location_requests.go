package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// locationRequestBody is the request body for submitting a location
// request.
type locationRequestBody struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// decisionBody carries the admin's notes on an approval or denial.
type decisionBody struct {
	AdminNotes string `json:"admin_notes"`
}

// handleCreateLocationRequest lets any member propose a new location.
func (s *Server) handleCreateLocationRequest(w http.ResponseWriter, r *http.Request) {
	var req locationRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	lr := &community.LocationRequest{
		OrgID:       cu.OrgID,
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		RequestedBy: cu.AccountID,
	}

	if err := s.locationRequests.Create(r.Context(), lr); err != nil {
		s.writeServiceError(w, err, "failed to create location request")
		return
	}

	writeJSON(w, http.StatusCreated, lr)
}

// handleListLocationRequests lists location requests. Students see only
// their own submissions; admins see the organization's queue and may
// narrow it with ?status= or ?mine=true.
func (s *Server) handleListLocationRequests(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)

	filter := community.RequestFilter{}
	if cu.Role != auth.RoleAdmin || r.URL.Query().Get("mine") == "true" {
		filter.RequestedBy = cu.AccountID
	}
	switch status := r.URL.Query().Get("status"); status {
	case "":
	case string(community.RequestPending), string(community.RequestApproved), string(community.RequestDenied):
		filter.Status = community.RequestStatus(status)
	default:
		writeBadRequest(w, "unknown status filter")
		return
	}

	requests, err := s.locationRequests.List(r.Context(), cu.OrgID, filter)
	if err != nil {
		s.logger.Error("failed to list location requests", "error", err)
		writeInternalError(w, "failed to list location requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

// handleApproveLocationRequest turns a pending request into a real
// location and marks the request approved. Admin only.
func (s *Server) handleApproveLocationRequest(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	// The notes are optional, so an empty body is fine.
	var req decisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	loc, err := s.locationRequests.Approve(r.Context(), cu.OrgID, id, cu.AccountID, req.AdminNotes)
	if err != nil {
		s.writeServiceError(w, err, "failed to approve location request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"location": loc})
}

// handleDenyLocationRequest rejects a pending request with a reason.
// Admin only.
func (s *Server) handleDenyLocationRequest(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	var req decisionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	lr, err := s.locationRequests.Deny(r.Context(), cu.OrgID, id, cu.AccountID, req.AdminNotes)
	if err != nil {
		s.writeServiceError(w, err, "failed to deny location request")
		return
	}

	writeJSON(w, http.StatusOK, lr)
}
