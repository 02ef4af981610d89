package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// reviewRequest is the request body for creating or updating a review.
type reviewRequest struct {
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

// handleListReviews returns all reviews for a location.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	locationID := chi.URLParam(r, "id")

	// Confirm the location exists in the caller's organization before
	// listing; a cross-tenant ID must 404, not return an empty list.
	if _, err := s.locations.GetByID(r.Context(), cu.OrgID, locationID); err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}

	reviews, err := s.reviews.ListByLocation(r.Context(), cu.OrgID, locationID)
	if err != nil {
		s.logger.Error("failed to list reviews", "error", err)
		writeInternalError(w, "failed to list reviews")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews, "count": len(reviews)})
}

// handleCreateReview adds the caller's review of a location. A second
// review of the same location by the same member updates the first in
// place.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	locationID := chi.URLParam(r, "id")

	if _, err := s.locations.GetByID(r.Context(), cu.OrgID, locationID); err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}

	review := &community.Review{
		OrgID:      cu.OrgID,
		LocationID: locationID,
		AccountID:  cu.AccountID,
		Rating:     req.Rating,
		Body:       req.Body,
	}

	err := s.reviews.Create(r.Context(), review)
	if errors.Is(err, community.ErrDuplicateReview) {
		// Upsert: replace the caller's existing review of this location.
		existing, findErr := s.findOwnReview(r, cu.OrgID, locationID, cu.AccountID)
		if findErr != nil {
			s.writeServiceError(w, findErr, "failed to update review")
			return
		}
		if err := s.reviews.Update(r.Context(), cu.OrgID, existing.ID, cu.AccountID, req.Rating, req.Body); err != nil {
			s.writeServiceError(w, err, "failed to update review")
			return
		}
		updated, getErr := s.reviews.GetByID(r.Context(), cu.OrgID, existing.ID)
		if getErr != nil {
			s.writeServiceError(w, getErr, "failed to get review")
			return
		}
		writeJSON(w, http.StatusOK, updated)
		return
	}
	if err != nil {
		s.writeServiceError(w, err, "failed to create review")
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// handleUpdateReview edits the caller's own review.
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	// Distinguish someone else's review (403) from a missing one (404).
	existing, err := s.reviews.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get review")
		return
	}
	if existing.AccountID != cu.AccountID {
		writeForbidden(w, "not the owner of this review")
		return
	}

	if err := s.reviews.Update(r.Context(), cu.OrgID, id, cu.AccountID, req.Rating, req.Body); err != nil {
		s.writeServiceError(w, err, "failed to update review")
		return
	}

	updated, err := s.reviews.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get review")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteReview removes a review. Members delete their own;
// admins delete any review in their organization.
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	id := chi.URLParam(r, "id")

	review, err := s.reviews.GetByID(r.Context(), cu.OrgID, id)
	if err != nil {
		s.writeServiceError(w, err, "failed to get review")
		return
	}
	if review.AccountID != cu.AccountID && cu.Role != auth.RoleAdmin {
		writeForbidden(w, "not the owner of this review")
		return
	}

	if err := s.reviews.Delete(r.Context(), cu.OrgID, id); err != nil {
		s.writeServiceError(w, err, "failed to delete review")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// findOwnReview locates the caller's existing review of a location.
func (s *Server) findOwnReview(r *http.Request, orgID, locationID, accountID string) (*community.Review, error) {
	reviews, err := s.reviews.ListByLocation(r.Context(), orgID, locationID)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].AccountID == accountID {
			return &reviews[i], nil
		}
	}
	return nil, community.ErrReviewNotFound
}
