package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
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
	"github.com/roomshare/roomshare-api/pkg/client"
	"github.com/roomshare/roomshare-api/pkg/protocol"
)

const testPassword = "hunter22"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// apiServer runs the real account routes over SQLite behind httptest.
type apiServer struct {
	srv          *httptest.Server
	clock        *domaintest.FakeClock
	refreshCalls atomic.Int32
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()

	store, err := adapter.OpenSQLiteUserStore(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	secrets := auth.Secrets{
		Access:  domain.SecretBytes(strings.Repeat("a", 32)),
		Refresh: domain.SecretBytes(strings.Repeat("r", 32)),
	}
	clock := domaintest.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	verifier := auth.NewVerifier(auth.VerifierConfig{Secrets: secrets, Clock: clock})

	authSvc := app.NewAuthService(app.AuthServiceConfig{
		UserStore:       store,
		RateLimiter:     adapter.NoopRateLimiter{},
		RevocationStore: adapter.NoopRevocationStore{},
		Issuer:          auth.NewIssuer(auth.IssuerConfig{Secrets: secrets, Clock: clock}),
		Verifier:        verifier,
		Clock:           clock,
		Logger:          discardLogger,
		PasswordCost:    bcrypt.MinCost,
	})
	userSvc := app.NewUserService(app.UserServiceConfig{
		UserStore:    store,
		Clock:        clock,
		Logger:       discardLogger,
		PasswordCost: bcrypt.MinCost,
	})

	cookies := port.CookieConfig{Path: "/api" + domain.RefreshCookiePath}
	r := mux.NewRouter()
	port.Routes(r, "/api", port.NewAuthHandler(authSvc, cookies), port.NewUserHandler(userSvc, cookies), verifier)

	s := &apiServer{clock: clock}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/api/auth/refresh" {
			s.refreshCalls.Add(1)
		}
		r.ServeHTTP(w, req)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// expiredCounter records OnSessionExpired invocations.
type expiredCounter struct {
	mu       sync.Mutex
	messages []string
}

func (e *expiredCounter) record(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
}

func (e *expiredCounter) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.messages...)
}

func (s *apiServer) newClient(t *testing.T) (*client.Client, *expiredCounter) {
	t.Helper()
	expired := &expiredCounter{}
	c, err := client.New(client.Config{
		BaseURL:          s.srv.URL + "/api",
		OnSessionExpired: expired.record,
		Logger:           discardLogger,
	})
	require.NoError(t, err)
	t.Cleanup(c.CloseIdleConnections)
	return c, expired
}

// signedUp returns a client with a fresh account and an active session.
func (s *apiServer) signedUp(t *testing.T, name, email string) (*client.Client, *expiredCounter, protocol.UserSummary) {
	t.Helper()
	c, expired := s.newClient(t)
	res, err := c.Signup(context.Background(), protocol.SignupRequest{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return c, expired, res.User
}
