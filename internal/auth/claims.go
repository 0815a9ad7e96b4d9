package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// Token type discriminators carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Identity is what an access token asserts about its holder.
type Identity struct {
	UserID domain.UserID
	Email  string
	Role   domain.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// AccessClaims are the claims of a short-lived access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Type  string      `json:"typ"`
}

// Identity converts verified claims back into an Identity.
func (c *AccessClaims) Identity() (Identity, error) {
	id, err := domain.NewUserID(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("access token subject: %w", domain.ErrCredentialInvalid)
	}
	if !domain.IsValidRole(c.Role) {
		return Identity{}, fmt.Errorf("access token role %q: %w", c.Role, domain.ErrCredentialInvalid)
	}
	return Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// RefreshClaims carry only the subject and the token id. Everything else is
// re-read from the user record when a refresh is honored.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// UserID parses the subject claim.
func (c *RefreshClaims) UserID() (domain.UserID, error) {
	id, err := domain.NewUserID(c.Subject)
	if err != nil {
		return domain.UserID{}, fmt.Errorf("refresh token subject: %w", domain.ErrCredentialInvalid)
	}
	return id, nil
}
