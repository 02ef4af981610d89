package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// locationRequest is the request body for creating or updating a location.
type locationRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// handleListLocations returns the organization's active locations with
// review aggregates.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)

	locations, err := s.locations.List(r.Context(), cu.OrgID)
	if err != nil {
		s.logger.Error("failed to list locations", "error", err)
		writeInternalError(w, "failed to list locations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "count": len(locations)})
}

// handleCreateLocation adds a new location to the organization.
func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	loc := &community.Location{
		OrgID:       cu.OrgID,
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		CreatedBy:   cu.AccountID,
		IsActive:    true,
	}

	if err := s.locations.Create(r.Context(), loc); err != nil {
		s.writeServiceError(w, err, "failed to create location")
		return
	}

	writeJSON(w, http.StatusCreated, loc)
}

// handleGetLocation returns a single location by ID.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	loc, err := s.locations.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// handleUpdateLocation edits a location. Only the member who added it
// or an admin may edit.
func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	loc, err := s.locations.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}
	if loc.CreatedBy != cu.AccountID && cu.Role != auth.RoleAdmin {
		writeForbidden(w, "not the owner of this location")
		return
	}

	loc.Name = req.Name
	loc.Address = req.Address
	loc.Description = req.Description

	if err := s.locations.Update(r.Context(), loc); err != nil {
		s.writeServiceError(w, err, "failed to update location")
		return
	}

	// Re-read for aggregates and the fresh updated_at.
	loc, err = s.locations.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// handleDeactivateLocation hides a location from listings. Reviews are
// kept. Admin only.
func (s *Server) handleDeactivateLocation(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.locations.Deactivate(r.Context(), cu.OrgID, id); err != nil {
		s.writeServiceError(w, err, "failed to deactivate location")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
