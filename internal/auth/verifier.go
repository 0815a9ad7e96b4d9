package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// Kind is the outcome of verifying a credential.
type Kind int

const (
	KindValid Kind = iota
	KindExpired
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Classify maps a verification error onto its Kind. Errors that wrap neither
// credential sentinel count as invalid.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindValid
	case errors.Is(err, domain.ErrCredentialExpired):
		return KindExpired
	default:
		return KindInvalid
	}
}

// Verifier checks token signatures and expiry. Every failure wraps exactly
// one of domain.ErrCredentialExpired or domain.ErrCredentialInvalid.
type Verifier struct {
	secrets Secrets
	issuer  string
	clock   domain.Clock
}

// VerifierConfig holds configuration for creating a Verifier.
type VerifierConfig struct {
	Secrets Secrets
	Issuer  string
	Clock   domain.Clock
}

// NewVerifier creates a new token verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.RealClock{}
	}
	return &Verifier{
		secrets: cfg.Secrets,
		issuer:  cfg.Issuer,
		clock:   cfg.Clock,
	}
}

// VerifyAccessToken validates an access token against the access secret.
func (v *Verifier) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := v.parse(tokenString, &claims, TypeAccess, func() string { return claims.Type }); err != nil {
		return nil, err
	}
	return &claims, nil
}

// VerifyRefreshToken validates a refresh token against the refresh secret.
func (v *Verifier) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := v.parse(tokenString, &claims, TypeRefresh, func() string { return claims.Type }); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (v *Verifier) parse(tokenString string, claims jwt.Claims, typ string, gotType func() string) error {
	if tokenString == "" {
		return fmt.Errorf("%s token: %w", typ, domain.ErrNoCredential)
	}

	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secrets.keyFor(typ), nil
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, opts...)
	switch {
	case err == nil:
	case onlyExpiredError(err):
		// The signature is checked before claims, so an expiry-only failure
		// still proves the token was ours.
		if gotType() != typ {
			return fmt.Errorf("%s token has type %q: %w", typ, gotType(), domain.ErrCredentialInvalid)
		}
		return fmt.Errorf("%s token: %w", typ, domain.ErrCredentialExpired)
	default:
		return fmt.Errorf("%s token: %w (%v)", typ, domain.ErrCredentialInvalid, err)
	}

	if gotType() != typ {
		return fmt.Errorf("%s token has type %q: %w", typ, gotType(), domain.ErrCredentialInvalid)
	}
	return nil
}

// onlyExpiredError returns true if err contains ErrTokenExpired
// and no other JWT validation errors.
func onlyExpiredError(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	return !errors.Is(err, jwt.ErrTokenMalformed) &&
		!errors.Is(err, jwt.ErrTokenUnverifiable) &&
		!errors.Is(err, jwt.ErrTokenSignatureInvalid) &&
		!errors.Is(err, jwt.ErrTokenNotValidYet) &&
		!errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenRequiredClaimMissing) &&
		!errors.Is(err, jwt.ErrTokenUsedBeforeIssued)
}
