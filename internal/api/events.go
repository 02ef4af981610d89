package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// eventRequest is the request body for creating or updating an event.
// StartsAt is optional RFC 3339.
type eventRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at"`
}

// startsAt parses the optional starts_at field.
func (req *eventRequest) startsAt() (*time.Time, error) {
	if req.StartsAt == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// handleListEvents returns the organization's events, soonest first.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)

	events, err := s.events.List(r.Context(), cu.OrgID)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleCreateEvent adds a new event to the organization.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	startsAt, err := req.startsAt()
	if err != nil {
		writeValidationError(w, "starts_at must be RFC 3339")
		return
	}

	cu := currentUser(r)
	event := &community.Event{
		OrgID:       cu.OrgID,
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		StartsAt:    startsAt,
		CreatedBy:   cu.AccountID,
	}

	if err := s.events.Create(r.Context(), event); err != nil {
		s.writeServiceError(w, err, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// handleGetEvent returns a single event by ID.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	event, err := s.events.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// handleUpdateEvent edits an event. Only the member who created it or
// an admin may edit.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	startsAt, err := req.startsAt()
	if err != nil {
		writeValidationError(w, "starts_at must be RFC 3339")
		return
	}

	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	event, err := s.events.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get event")
		return
	}
	if event.CreatedBy != cu.AccountID && cu.Role != auth.RoleAdmin {
		writeForbidden(w, "not the owner of this event")
		return
	}

	event.Name = req.Name
	event.Location = req.Location
	event.Description = req.Description
	event.StartsAt = startsAt

	if err := s.events.Update(r.Context(), event); err != nil {
		s.writeServiceError(w, err, "failed to update event")
		return
	}

	event, err = s.events.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// handleDeleteEvent removes an event. Creator or admin only.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	event, err := s.events.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get event")
		return
	}
	if event.CreatedBy != cu.AccountID && cu.Role != auth.RoleAdmin {
		writeForbidden(w, "not the owner of this event")
		return
	}

	if err := s.events.Delete(r.Context(), cu.OrgID, id); err != nil {
		s.writeServiceError(w, err, "failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
