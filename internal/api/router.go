package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Public organization directory and self-service registration
		r.Get("/orgs", s.handleListOrgs)
		r.Post("/orgs/register", s.handleRegisterOrg)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/me", s.handleMe)
			r.Patch("/me", s.handleUpdateProfile)

			// Location endpoints (reviews nested under their location)
			r.Route("/locations", func(r chi.Router) {
				r.Get("/", s.handleListLocations)
				r.Post("/", s.handleCreateLocation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetLocation)
					r.Patch("/", s.handleUpdateLocation)
					r.Delete("/", s.handleDeactivateLocation)
					r.Get("/reviews", s.handleListReviews)
					r.Post("/reviews", s.handleCreateReview)
				})
			})

			// Review endpoints (edit/remove by ID)
			r.Route("/reviews/{id}", func(r chi.Router) {
				r.Patch("/", s.handleUpdateReview)
				r.Delete("/", s.handleDeleteReview)
			})

			// Favorite endpoints (per-account bookmarks)
			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", s.handleListFavorites)
				r.Post("/{locationID}", s.handleAddFavorite)
				r.Delete("/{locationID}", s.handleRemoveFavorite)
			})

			// Location request endpoints (student submissions, admin
			// decisions)
			r.Route("/location-requests", func(r chi.Router) {
				r.Get("/", s.handleListLocationRequests)
				r.Post("/", s.handleCreateLocationRequest)
				r.Post("/{id}/approve", s.handleApproveLocationRequest)
				r.Post("/{id}/deny", s.handleDenyLocationRequest)
			})

			// Announcement endpoints
			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", s.handleListAnnouncements)
				r.Post("/", s.handleCreateAnnouncement)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAnnouncement)
					r.Patch("/", s.handleUpdateAnnouncement)
					r.Delete("/", s.handleDeleteAnnouncement)
					r.Post("/publish", s.handlePublishAnnouncement)
				})
			})

			// Event endpoints
			r.Route("/events", func(r chi.Router) {
				r.Get("/", s.handleListEvents)
				r.Post("/", s.handleCreateEvent)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEvent)
					r.Patch("/", s.handleUpdateEvent)
					r.Delete("/", s.handleDeleteEvent)
				})
			})

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(s.adminMiddleware)

				r.Get("/users", s.handleListUsers)
				r.Delete("/users", s.handleRemoveUser)
				r.Get("/audit", s.handleListAuditLogs)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
