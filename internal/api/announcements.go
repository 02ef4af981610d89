package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// announcementRequest is the request body for creating or updating an
// announcement.
type announcementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// handleListAnnouncements returns the organization's announcements.
// Students see published ones only; admins also see drafts.
func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	publishedOnly := cu.Role != auth.RoleAdmin

	announcements, err := s.announcements.List(r.Context(), cu.OrgID, publishedOnly)
	if err != nil {
		s.logger.Error("failed to list announcements", "error", err)
		writeInternalError(w, "failed to list announcements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"announcements": announcements, "count": len(announcements)})
}

// handleCreateAnnouncement creates a draft announcement. Admin only.
func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	a := &community.Announcement{
		OrgID:     cu.OrgID,
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: cu.AccountID,
	}

	if err := s.announcements.Create(r.Context(), a); err != nil {
		s.writeServiceError(w, err, "failed to create announcement")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleGetAnnouncement returns a single announcement. Drafts are
// visible to admins only.
func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	a, err := s.announcements.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get announcement")
		return
	}
	if a.Status == community.StatusDraft && cu.Role != auth.RoleAdmin {
		writeNotFound(w, "announcement not found")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleUpdateAnnouncement edits an announcement's title and body.
// Admin only.
func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.announcements.Update(r.Context(), cu.OrgID, id, req.Title, req.Body); err != nil {
		s.writeServiceError(w, err, "failed to update announcement")
		return
	}

	a, err := s.announcements.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get announcement")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handlePublishAnnouncement makes a draft visible to all members.
// Publishing an already-published announcement is a no-op. Admin only.
func (s *Server) handlePublishAnnouncement(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.announcements.Publish(r.Context(), cu.OrgID, id, time.Now().UTC()); err != nil {
		s.writeServiceError(w, err, "failed to publish announcement")
		return
	}

	a, err := s.announcements.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get announcement")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAnnouncement removes an announcement. Admin only.
func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	if cu.Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.announcements.Delete(r.Context(), cu.OrgID, id); err != nil {
		s.writeServiceError(w, err, "failed to delete announcement")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
