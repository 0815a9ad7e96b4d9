package port_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roomshare/roomshare-api/internal/account/adapter"
	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/account/port"
	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/domain/domaintest"
	"github.com/roomshare/roomshare-api/internal/middleware"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

var testStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

var testSecrets = auth.Secrets{
	Access:  domain.SecretBytes(strings.Repeat("a", 32)),
	Refresh: domain.SecretBytes(strings.Repeat("r", 32)),
}

const (
	apiPrefix    = "/api"
	testPassword = "hunter22"
)

type harness struct {
	router   http.Handler
	clock    *domaintest.FakeClock
	store    *adapter.SQLiteUserStore
	verifier *auth.Verifier
}

func newHarness(t *testing.T, configure ...func(*app.AuthServiceConfig)) *harness {
	t.Helper()

	store, err := adapter.OpenSQLiteUserStore(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := domaintest.NewFakeClock(testStart)
	issuer := auth.NewIssuer(auth.IssuerConfig{Secrets: testSecrets, Clock: clock})
	verifier := auth.NewVerifier(auth.VerifierConfig{Secrets: testSecrets, Clock: clock})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := app.AuthServiceConfig{
		UserStore:       store,
		RateLimiter:     adapter.NoopRateLimiter{},
		RevocationStore: adapter.NoopRevocationStore{},
		Issuer:          issuer,
		Verifier:        verifier,
		Clock:           clock,
		Logger:          logger,
		PasswordCost:    bcrypt.MinCost,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	authSvc := app.NewAuthService(cfg)
	userSvc := app.NewUserService(app.UserServiceConfig{
		UserStore:    store,
		Clock:        clock,
		Logger:       logger,
		PasswordCost: bcrypt.MinCost,
	})

	cookies := port.CookieConfig{Path: apiPrefix + domain.RefreshCookiePath}
	r := mux.NewRouter()
	port.Routes(r, apiPrefix,
		port.NewAuthHandler(authSvc, cookies),
		port.NewUserHandler(userSvc, cookies),
		verifier,
	)

	return &harness{
		router:   middleware.Recover(r),
		clock:    clock,
		store:    store,
		verifier: verifier,
	}
}

type reqOpt func(*http.Request)

func withBearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func withHeader(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// keyRecorder is a RateLimiter that admits everything and remembers keys.
type keyRecorder struct {
	keys []string
}

func (k *keyRecorder) CheckAndIncrement(_ context.Context, key string, _, _ int) (bool, error) {
	k.keys = append(k.keys, key)
	return true, nil
}

func (h *harness) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.7:51234"
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// signup creates an account and returns the session body and refresh cookie.
func (h *harness) signup(t *testing.T, name, email string) (protocol.SessionResponse, *http.Cookie) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/auth/signup", protocol.SignupRequest{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[protocol.SessionResponse](t, rec), refreshCookie(t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == domain.RefreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", domain.RefreshCookieName)
	return nil
}
