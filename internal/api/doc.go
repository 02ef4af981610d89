// Package api provides the HTTP REST API server for Campus Core.
//
// It exposes organization discovery and registration, account
// authentication, and the org-scoped community endpoints (locations,
// reviews, announcements, events). Protected routes resolve the caller
// through the auth service on every request, so a revoked or removed
// account loses access as soon as its current token is presented.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
