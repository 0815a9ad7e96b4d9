// Package middleware holds the HTTP middleware chain: session
// authentication, role checks, request logging, and panic recovery.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/httpx"
	"github.com/roomshare/roomshare-api/internal/observability"
)

// AccessVerifier verifies bearer access tokens. *auth.Verifier satisfies it.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

var authRejections metric.Int64Counter

func init() {
	meter := observability.Meter("roomshare/middleware")

	var err error
	authRejections, err = meter.Int64Counter("security_auth_failures_total",
		metric.WithDescription("Requests rejected by the session middleware"),
	)
	if err != nil {
		panic(fmt.Sprintf("create security_auth_failures_total counter: %v", err))
	}
}

type identityKey struct{}

// WithIdentity stores an authenticated identity in ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// Authenticate requires a valid bearer access token. A missing token is 401
// NO_TOKEN, an expired one 401 TOKEN_EXPIRED, anything else 403
// INVALID_TOKEN. It never consults the credential store.
func Authenticate(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, fmt.Errorf("authorization header: %w", domain.ErrNoCredential))
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				reject(w, r, err)
				return
			}

			id, err := claims.Identity()
			if err != nil {
				reject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole admits only identities holding one of roles. It must run after
// Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				reject(w, r, fmt.Errorf("no identity in context: %w", domain.ErrNoCredential))
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, r, fmt.Errorf("role %q not permitted: %w", id.Role, domain.ErrForbidden))
		})
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	authRejections.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("kind", rejectionKind(err))))
	httpx.WriteError(w, r, err)
}

func rejectionKind(err error) string {
	if domain.IsNoCredential(err) {
		return "missing"
	}
	return auth.Classify(err).String()
}
