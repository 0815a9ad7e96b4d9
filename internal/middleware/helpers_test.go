package middleware_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/roomshare/roomshare-api/internal/auth"
)

func jwtDate(t time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(t)
}

func signAccess(t *testing.T, claims *auth.AccessClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecrets.Access.Expose())
	require.NoError(t, err)
	return signed
}
