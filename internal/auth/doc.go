// Package auth provides tenant-scoped authentication for Campus Core.
//
// Every account lives inside exactly one organization, and the email
// domain decides which one: registration and login resolve the address
// through domain_bindings before anything else happens. The package
// implements:
//   - bcrypt password hashing with a SHA-256 pre-digest (no 72-byte cap)
//   - HS256 JWT access tokens carrying org and role claims
//   - opaque refresh tokens stored hash-only, rotated atomically on use
//   - an identity resolver that re-checks the live account row on every
//     protected request, so revocation and role changes bite immediately
//   - soft delete with a retention window and a scheduled purge job
//
// Access-token failures stay deliberately vague at the edges: every
// authentication failure maps to the same generic response, and only
// role checks produce a distinct forbidden error.
package auth
