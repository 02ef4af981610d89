// Package community holds the org-scoped campus content: locations
// with member reviews, announcements, and events. Every query is keyed
// by organization id; content never leaks across tenants. Authorisation
// (who may publish, who may edit) is decided by the HTTP layer from the
// resolved request identity; this package only enforces scoping and
// ownership where the schema does.
package community
