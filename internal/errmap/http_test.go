package errmap_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/errmap"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatusCode int
		wantCode       string
	}{
		{"nil error", nil, http.StatusOK, ""},

		// Session taxonomy
		{"ErrNoCredential", domain.ErrNoCredential, http.StatusUnauthorized, protocol.CodeNoToken},
		{"ErrCredentialExpired", domain.ErrCredentialExpired, http.StatusUnauthorized, protocol.CodeTokenExpired},
		{"ErrCredentialInvalid", domain.ErrCredentialInvalid, http.StatusForbidden, protocol.CodeInvalidToken},
		{"ErrInvalidCredentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, protocol.CodeInvalidCredentials},

		{"ErrForbidden", domain.ErrForbidden, http.StatusForbidden, protocol.CodePermissionDenied},
		{"ErrNotFound", domain.ErrNotFound, http.StatusNotFound, protocol.CodeNotFound},
		{"ErrAlreadyExists", domain.ErrAlreadyExists, http.StatusConflict, protocol.CodeAlreadyExists},

		{"ErrInvalidInput", domain.ErrInvalidInput, http.StatusBadRequest, protocol.CodeInvalidArgument},
		{"ErrInvalidEmail", domain.ErrInvalidEmail, http.StatusBadRequest, protocol.CodeInvalidArgument},
		{"ErrWeakPassword", domain.ErrWeakPassword, http.StatusBadRequest, protocol.CodeInvalidArgument},
		{"ErrInvalidPhoneNumber", domain.ErrInvalidPhoneNumber, http.StatusBadRequest, protocol.CodeInvalidArgument},
		{"ErrInvalidID", domain.ErrInvalidID, http.StatusBadRequest, protocol.CodeInvalidArgument},

		{"ErrRateLimited", domain.ErrRateLimited, http.StatusTooManyRequests, protocol.CodeRateLimited},
		{"ErrUnavailable", domain.ErrUnavailable, http.StatusServiceUnavailable, protocol.CodeUnavailable},

		{"wrapped expired", fmt.Errorf("access token: %w", domain.ErrCredentialExpired), http.StatusUnauthorized, protocol.CodeTokenExpired},
		{"unknown error", errors.New("pq: connection refused"), http.StatusInternalServerError, protocol.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errmap.ToHTTPError(tt.err)
			assert.Equal(t, tt.wantStatusCode, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestSessionMessages(t *testing.T) {
	assert.Equal(t, "Unauthorized - No token provided", errmap.ToHTTPError(domain.ErrNoCredential).Message)
	assert.Equal(t, "Token expired", errmap.ToHTTPError(domain.ErrCredentialExpired).Message)
	assert.Equal(t, "Forbidden - Invalid token", errmap.ToHTTPError(domain.ErrCredentialInvalid).Message)
}

func TestInternalDetailsNotLeaked(t *testing.T) {
	err := fmt.Errorf("query users: %w", errors.New("disk I/O error at /var/lib/roomshare.db"))

	got := errmap.ToHTTPError(err)

	assert.Equal(t, "internal error", got.Message)
	assert.NotContains(t, got.Error(), "disk")
}

func TestWrappedDetailsNotLeaked(t *testing.T) {
	err := fmt.Errorf("access token: %w (signature is invalid)", domain.ErrCredentialInvalid)

	got := errmap.ToHTTPError(err)

	assert.Equal(t, errmap.MsgInvalidToken, got.Message)
	assert.Equal(t, protocol.ErrorResponse{Success: false, Message: errmap.MsgInvalidToken, Code: protocol.CodeInvalidToken}, got.Response())
}

func TestWithMessage(t *testing.T) {
	got := errmap.WithMessage(domain.ErrNoCredential, "Refresh token not found")

	assert.Equal(t, http.StatusUnauthorized, got.StatusCode)
	assert.Equal(t, protocol.CodeNoToken, got.Code)
	assert.Equal(t, "Refresh token not found", got.Message)
}

func TestToHTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, errmap.ToHTTPStatusCode(domain.ErrCredentialInvalid))
	assert.Equal(t, http.StatusInternalServerError, errmap.ToHTTPStatusCode(errors.New("boom")))
}
