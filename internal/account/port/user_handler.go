package port

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/errmap"
	"github.com/roomshare/roomshare-api/internal/httpx"
	"github.com/roomshare/roomshare-api/internal/middleware"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

// userService is a narrow, consumer-defined interface for the profile
// operations. The *app.UserService satisfies this.
type userService interface {
	Get(ctx context.Context, caller auth.Identity, id string) (*app.UserRecord, error)
	Update(ctx context.Context, caller auth.Identity, id string, in app.UpdateInput) (*app.UserRecord, error)
	Delete(ctx context.Context, caller auth.Identity, id string) error
}

// UserHandler serves the /user endpoints. Every route sits behind
// middleware.Authenticate.
type UserHandler struct {
	svc     userService
	cookies CookieConfig
}

// NewUserHandler creates a UserHandler backed by the given service.
func NewUserHandler(svc userService, cookies CookieConfig) *UserHandler {
	return &UserHandler{svc: svc, cookies: cookies}
}

// Get handles GET /user/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.UserResponse{Success: true, User: toSummary(*user)})
}

// Update handles PUT /user/update/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	var req protocol.UpdateUserRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Update(r.Context(), caller, mux.Vars(r)["id"], app.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.UserResponse{Success: true, User: toSummary(*user)})
}

// Delete handles DELETE /user/delete/{id}. The caller's refresh cookie is
// cleared as well.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeUserError(w, r, err)
		return
	}
	h.cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: msgAccountDeleted})
}

func callerOrReject(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, domain.ErrNoCredential)
		return auth.Identity{}, false
	}
	return caller, true
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteHTTPError(w, r, errmap.WithMessage(err, msgOwnAccountOnly), err)
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteHTTPError(w, r, errmap.WithMessage(err, msgUserNotFound), err)
	case errors.Is(err, domain.ErrAlreadyExists):
		httpx.WriteHTTPError(w, r, errmap.WithMessage(err, msgEmailAlreadyTaken), err)
	default:
		httpx.WriteError(w, r, err)
	}
}
