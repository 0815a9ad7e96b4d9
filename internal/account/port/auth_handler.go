// Package port exposes the account services over REST.
package port

import (
	"context"
	"errors"
	"net/http"

	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/errmap"
	"github.com/roomshare/roomshare-api/internal/httpx"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

// Public messages for the auth endpoints.
const (
	msgSignedUp          = "User created successfully"
	msgSignedIn          = "User logged in successfully"
	msgSignedOut         = "User logged out successfully"
	msgRefreshMissing    = "Refresh token not found"
	msgRefreshInvalid    = "Invalid refresh token"
	msgAccountDeleted    = "User has been deleted"
	msgOwnAccountOnly    = "You can only manage your own account"
	msgUserNotFound      = "User not found"
	msgEmailAlreadyTaken = "Email already in use"
)

// authService is a narrow, consumer-defined interface for the auth service
// operations the handler requires. The *app.AuthService satisfies this.
type authService interface {
	Signup(ctx context.Context, in app.SignupInput) (*app.SessionResult, error)
	Signin(ctx context.Context, in app.SigninInput) (*app.SessionResult, error)
	Refresh(ctx context.Context, refreshToken string) (*app.RefreshResult, error)
	Signout(ctx context.Context, refreshToken string)
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	svc     authService
	cookies CookieConfig
}

// NewAuthHandler creates an AuthHandler backed by the given service.
func NewAuthHandler(svc authService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req protocol.SignupRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), app.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	h.writeSession(w, http.StatusCreated, msgSignedUp, res)
}

// Signin handles POST /auth/signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req protocol.SigninRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Signin(r.Context(), app.SigninInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: httpx.ClientIP(r),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	h.writeSession(w, http.StatusOK, msgSignedIn, res)
}

// Refresh handles POST /auth/refresh. The refresh token is read only from
// the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshFromRequest(r)
	if token == "" {
		httpx.WriteHTTPError(w, r, errmap.WithMessage(domain.ErrNoCredential, msgRefreshMissing), domain.ErrNoCredential)
		return
	}

	res, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialInvalid) {
			h.cookies.clearRefresh(w)
			httpx.WriteHTTPError(w, r, errmap.WithMessage(err, msgRefreshInvalid), err)
			return
		}
		httpx.WriteError(w, r, err)
		return
	}

	if res.RefreshToken != nil {
		h.cookies.setRefresh(w, *res.RefreshToken)
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.RefreshResponse{
		Success:     true,
		AccessToken: res.AccessToken.Value,
	})
}

// Signout handles POST /auth/signout. It always succeeds and clears the
// cookie.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.svc.Signout(r.Context(), refreshFromRequest(r))
	h.cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: msgSignedOut})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, message string, res *app.SessionResult) {
	h.cookies.setRefresh(w, res.RefreshToken)
	httpx.WriteJSON(w, status, protocol.SessionResponse{
		Success:     true,
		Message:     message,
		AccessToken: res.AccessToken.Value,
		User:        toSummary(res.User),
	})
}

func toSummary(u app.UserRecord) protocol.UserSummary {
	return protocol.UserSummary{
		ID:    u.UserID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
}
