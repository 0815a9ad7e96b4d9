package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "roomshare-api"

// Token is a signed token plus the metadata callers need to set cookies and
// revoke it later.
type Token struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// Issuer creates signed HS256 access and refresh tokens.
type Issuer struct {
	secrets    Secrets
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      domain.Clock
}

// IssuerConfig holds configuration for creating an Issuer.
type IssuerConfig struct {
	Secrets    Secrets
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      domain.Clock
}

// NewIssuer creates a new token issuer. Zero TTLs fall back to the standard
// lifetimes.
func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = domain.AccessTokenLifetime
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = domain.RefreshTokenLifetime
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.RealClock{}
	}
	return &Issuer{
		secrets:    cfg.Secrets,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clock:      cfg.Clock,
	}
}

// IssueAccessToken signs {sub, email, role} with the access secret.
func (i *Issuer) IssueAccessToken(id Identity) (Token, error) {
	if id.UserID.IsZero() {
		return Token{}, fmt.Errorf("issue access token: %w", domain.ErrEmptyID)
	}
	now := domain.NowUTC(i.clock)
	claims := AccessClaims{
		RegisteredClaims: i.registered(id.UserID, now, i.accessTTL),
		Email:            id.Email,
		Role:             id.Role,
		Type:             TypeAccess,
	}
	return i.sign(&claims, claims.RegisteredClaims, TypeAccess)
}

// IssueRefreshToken signs {sub} with the refresh secret.
func (i *Issuer) IssueRefreshToken(userID domain.UserID) (Token, error) {
	if userID.IsZero() {
		return Token{}, fmt.Errorf("issue refresh token: %w", domain.ErrEmptyID)
	}
	now := domain.NowUTC(i.clock)
	claims := RefreshClaims{
		RegisteredClaims: i.registered(userID, now, i.refreshTTL),
		Type:             TypeRefresh,
	}
	return i.sign(&claims, claims.RegisteredClaims, TypeRefresh)
}

func (i *Issuer) registered(userID domain.UserID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        domain.GenerateTokenID(),
	}
}

func (i *Issuer) sign(claims jwt.Claims, rc jwt.RegisteredClaims, typ string) (Token, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secrets.keyFor(typ))
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return Token{
		Value:     signed,
		JTI:       rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
