package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusnav/campus-core/internal/auth"
	"github.com/campusnav/campus-core/internal/community"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 error response with a validation code.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps a service or repository error to an HTTP
// response. Authentication failures collapse into one 401 body so the
// response does not reveal whether an account exists or why it was
// rejected. Unknown errors are logged and become a 500 with the given
// fallback message.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenIssuer),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrAccountDisabled),
		errors.Is(err, auth.ErrAccountRemoved),
		errors.Is(err, auth.ErrOrgMismatch),
		errors.Is(err, auth.ErrRoleMismatch):
		writeUnauthorized(w, "invalid or expired credentials")

	case errors.Is(err, auth.ErrForbidden),
		errors.Is(err, community.ErrNotOwner):
		writeForbidden(w, err.Error())

	case errors.Is(err, auth.ErrValidation),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrDomainNotAllowed),
		errors.Is(err, community.ErrValidation),
		errors.Is(err, community.ErrInvalidRating),
		errors.Is(err, community.ErrRequestDecided):
		writeValidationError(w, err.Error())

	case errors.Is(err, auth.ErrDomainTaken),
		errors.Is(err, auth.ErrDuplicateAccount),
		errors.Is(err, community.ErrDuplicateReview):
		writeConflict(w, err.Error())

	// An unroutable email domain on registration means no organization
	// was found for it. Login never reaches this mapping: the service
	// collapses the same condition into a credential failure there.
	case errors.Is(err, auth.ErrAccountNotFound),
		errors.Is(err, auth.ErrOrgNotFound),
		errors.Is(err, auth.ErrDomainNotRecognized),
		errors.Is(err, community.ErrLocationNotFound),
		errors.Is(err, community.ErrReviewNotFound),
		errors.Is(err, community.ErrAnnouncementNotFound),
		errors.Is(err, community.ErrEventNotFound),
		errors.Is(err, community.ErrRequestNotFound):
		writeNotFound(w, err.Error())

	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}
