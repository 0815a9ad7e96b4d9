package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	// Credential errors. Every token verification failure is classified into
	// exactly one of these three at the boundary.
	ErrNoCredential      = errors.New("no credential presented")
	ErrCredentialExpired = errors.New("credential expired")
	ErrCredentialInvalid = errors.New("credential invalid")

	// Account errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("permission denied")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidRole        = errors.New("invalid role")

	// Operational errors
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
	ErrConfigInvalid  = errors.New("invalid configuration value")
)

// IsRefreshable reports whether err is the one credential failure a client
// may recover from by calling the refresh endpoint.
func IsRefreshable(err error) bool {
	return errors.Is(err, ErrCredentialExpired)
}

// IsNoCredential reports whether err means no credential was presented at all.
func IsNoCredential(err error) bool {
	return errors.Is(err, ErrNoCredential)
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrInvalidEmail,
	ErrInvalidPhoneNumber,
	ErrWeakPassword,
	ErrInvalidRole,
	ErrNotFound,
	ErrAlreadyExists,
	ErrForbidden,
	ErrEmptyID,
	ErrInvalidID,
	ErrNoCredential,
	ErrCredentialExpired,
	ErrCredentialInvalid,
	ErrInvalidCredentials,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermissionDenied returns true if the error represents a permission issue.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrCredentialInvalid)
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
