// Package errmap converts domain errors into HTTP responses. It is the only
// place that decides which status code and public message a failure gets.
package errmap

import (
	"errors"
	"net/http"

	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// Response returns the wire body for the error.
func (e HTTPError) Response() protocol.ErrorResponse {
	return protocol.ErrorResponse{Success: false, Message: e.Message, Code: e.Code}
}

type httpMapping struct {
	err        error
	statusCode int
	code       string
	message    string
}

// Public messages for the session failures. Clients distinguish them by code.
const (
	MsgNoToken      = "Unauthorized - No token provided"
	MsgTokenExpired = "Token expired"
	MsgInvalidToken = "Forbidden - Invalid token"
)

// httpMappings maps domain errors to HTTP status codes, codes, and the
// message shown to clients. Order matters: first match wins (via errors.Is).
// Internal error text is never sent.
var httpMappings = []httpMapping{
	// Session errors
	{domain.ErrNoCredential, http.StatusUnauthorized, protocol.CodeNoToken, MsgNoToken},
	{domain.ErrCredentialExpired, http.StatusUnauthorized, protocol.CodeTokenExpired, MsgTokenExpired},
	{domain.ErrCredentialInvalid, http.StatusForbidden, protocol.CodeInvalidToken, MsgInvalidToken},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, protocol.CodeInvalidCredentials, "Invalid credentials"},

	// Permission errors
	{domain.ErrForbidden, http.StatusForbidden, protocol.CodePermissionDenied, "You can only manage your own account"},

	// Resource errors
	{domain.ErrNotFound, http.StatusNotFound, protocol.CodeNotFound, "Not found"},
	{domain.ErrAlreadyExists, http.StatusConflict, protocol.CodeAlreadyExists, "User with this email already exists"},

	// Validation errors
	{domain.ErrInvalidEmail, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid email address"},
	{domain.ErrInvalidPhoneNumber, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid phone number"},
	{domain.ErrWeakPassword, http.StatusBadRequest, protocol.CodeInvalidArgument, "Password must be at least 6 characters"},
	{domain.ErrInvalidRole, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid role"},
	{domain.ErrEmptyID, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid ID"},
	{domain.ErrInvalidID, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid ID"},
	{domain.ErrInvalidInput, http.StatusBadRequest, protocol.CodeInvalidArgument, "Invalid request"},

	// Operational
	{domain.ErrRateLimited, http.StatusTooManyRequests, protocol.CodeRateLimited, "Too many attempts, try again later"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, protocol.CodeUnavailable, "Service temporarily unavailable"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: m.message}
		}
	}
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: protocol.CodeInternal, Message: "internal error"}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}

// WithMessage returns the mapping for err with its public message replaced.
// Status and code are unchanged.
func WithMessage(err error, message string) HTTPError {
	he := ToHTTPError(err)
	he.Message = message
	return he
}
