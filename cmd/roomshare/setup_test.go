package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomshare/roomshare-api/internal/config"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "local",
		HTTP:        config.HTTPConfig{APIPrefix: "/api"},
		Auth: config.AuthConfig{
			AccessSecret:  domain.SecretString(strings.Repeat("a", 32)),
			RefreshSecret: domain.SecretString(strings.Repeat("r", 32)),
			SecretsSource: config.SecretsFromEnv,
			PasswordCost:  4,
		},
		Store: config.StoreConfig{
			Driver:     config.StoreSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "users.db"),
		},
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Run("from env", func(t *testing.T) {
		secrets, err := loadSecrets(context.Background(), testConfig(t))
		require.NoError(t, err)
		assert.Len(t, secrets.Access, 32)
		assert.False(t, secrets.Access.Equal(secrets.Refresh))
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.AccessSecret = "short"
		_, err := loadSecrets(context.Background(), cfg)
		require.ErrorIs(t, err, domain.ErrConfigInvalid)
	})
}

func TestSetup_RegistersRoutes(t *testing.T) {
	router := mux.NewRouter()
	cleanup, err := setup(context.Background(), server.SetupDeps{
		Config: testConfig(t),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Router: router,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cleanup(context.Background())) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == domain.RefreshCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.False(t, cookie.Secure, "only prod sets Secure")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/550e8400-e29b-41d4-a716-446655440000", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
