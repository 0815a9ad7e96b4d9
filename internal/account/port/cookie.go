package port

import (
	"net/http"
	"time"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
)

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
	// Path scopes the cookie to the auth routes, e.g. "/api/auth".
	Path string
	// Secure is set in production so the cookie never travels over plain HTTP.
	Secure bool
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return domain.RefreshCookiePath
	}
	return c.Path
}

// setRefresh writes the refresh token cookie. The token is never placed in a
// response body.
func (c CookieConfig) setRefresh(w http.ResponseWriter, tok auth.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     domain.RefreshCookieName,
		Value:    tok.Value,
		Path:     c.path(),
		Expires:  tok.ExpiresAt,
		MaxAge:   int(domain.RefreshTokenLifetime / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefresh expires the refresh token cookie.
func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     domain.RefreshCookieName,
		Value:    "",
		Path:     c.path(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshFromRequest returns the refresh cookie value, or "" if absent.
func refreshFromRequest(r *http.Request) string {
	c, err := r.Cookie(domain.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
