package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/domain/domaintest"
)

var testSecrets = auth.Secrets{
	Access:  domain.SecretBytes(strings.Repeat("a", 32)),
	Refresh: domain.SecretBytes(strings.Repeat("r", 32)),
}

var testUser = auth.Identity{
	UserID: domain.MustUserID("550e8400-e29b-41d4-a716-446655440000"),
	Email:  "alice@example.com",
	Role:   domain.RoleUser,
}

func newTestIssuerAndVerifier(t *testing.T) (*auth.Issuer, *auth.Verifier, *domaintest.FakeClock) {
	t.Helper()
	clock := domaintest.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secrets: testSecrets,
		Issuer:  "roomshare-test",
		Clock:   clock,
	})
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secrets: testSecrets,
		Issuer:  "roomshare-test",
		Clock:   clock,
	})
	return issuer, verifier, clock
}
