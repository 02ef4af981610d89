package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListFavorites returns the caller's favorited locations, same
// shape as the locations listing.
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)

	locations, err := s.favorites.ListLocations(r.Context(), cu.OrgID, cu.AccountID)
	if err != nil {
		s.logger.Error("failed to list favorites", "error", err)
		writeInternalError(w, "failed to list favorites")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "count": len(locations)})
}

// handleAddFavorite bookmarks a location for the caller. Idempotent.
// The location must exist in the caller's organization.
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	locationID := chi.URLParam(r, "locationID")

	if _, err := s.locations.GetByID(r.Context(), cu.OrgID, locationID); err != nil {
		s.writeServiceError(w, err, "failed to get location")
		return
	}

	if err := s.favorites.Add(r.Context(), cu.AccountID, locationID); err != nil {
		s.logger.Error("failed to add favorite", "error", err)
		writeInternalError(w, "failed to add favorite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveFavorite removes a bookmark. Idempotent.
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	cu := currentUser(r)
	locationID := chi.URLParam(r, "locationID")

	if err := s.favorites.Remove(r.Context(), cu.AccountID, locationID); err != nil {
		s.logger.Error("failed to remove favorite", "error", err)
		writeInternalError(w, "failed to remove favorite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
