package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
)

var tracer = otel.Tracer("account/app")

var (
	signupsTotal            metric.Int64Counter
	tokenMintedTotal        metric.Int64Counter
	refreshTotal            metric.Int64Counter
	authFailuresTotal       metric.Int64Counter
	rateLimitsTotal         metric.Int64Counter
	sessionRevocationsTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("account/app")

	signupsTotal = mustCounter(m, "auth_signups_total", "Total accounts created")
	tokenMintedTotal = mustCounter(m, "auth_token_minted_total", "Total tokens minted")
	refreshTotal = mustCounter(m, "auth_refresh_total", "Total refresh attempts by outcome")
	authFailuresTotal = mustCounter(m, "security_auth_failures_total", "Total authentication failures")
	rateLimitsTotal = mustCounter(m, "security_rate_limits_total", "Total rate limit hits")
	sessionRevocationsTotal = mustCounter(m, "security_session_revocations_total", "Total session revocations")
}

func mustCounter(m metric.Meter, name, description string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("create %s counter: %v", name, err))
	}
	return c
}

// UserRecord is an account as held by the Credential Store.
type UserRecord struct {
	UserID       string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the claims an access token for this user carries.
func (u UserRecord) Identity() (auth.Identity, error) {
	id, err := domain.NewUserID(u.UserID)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: id, Email: u.Email, Role: u.Role}, nil
}

// UserStore is the Credential Store. Implementations return domain.ErrNotFound
// for missing records and domain.ErrAlreadyExists when an email is taken.
type UserStore interface {
	Create(ctx context.Context, user UserRecord) error
	GetByID(ctx context.Context, userID string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Update(ctx context.Context, user UserRecord) error
	Delete(ctx context.Context, userID string) error
}

// RateLimiter checks and enforces fixed-window rate limits.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error)
}

// RevocationStore tracks revoked refresh token ids until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SignupInput is the raw signup form.
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// SigninInput is the raw signin form plus the caller address used for
// throttling.
type SigninInput struct {
	Email    string
	Password string
	ClientIP string
}

// SessionResult is returned by Signup and Signin. The refresh token belongs
// in the cookie; the access token and user go in the body.
type SessionResult struct {
	AccessToken  auth.Token
	RefreshToken auth.Token
	User         UserRecord
}

// RefreshResult is returned by Refresh. RefreshToken is nil unless rotation
// is enabled.
type RefreshResult struct {
	AccessToken  auth.Token
	RefreshToken *auth.Token
	User         UserRecord
}

// AuthServiceConfig holds the dependencies for AuthService.
type AuthServiceConfig struct {
	UserStore       UserStore
	RateLimiter     RateLimiter
	RevocationStore RevocationStore
	Issuer          *auth.Issuer
	Verifier        *auth.Verifier
	Clock           domain.Clock
	Logger          *slog.Logger

	PasswordCost        int
	RotateRefreshTokens bool
	RevokeOnSignout     bool
	SigninLimitPerEmail int
	SigninLimitPerIP    int
	SigninWindow        time.Duration
}

// AuthService orchestrates signup, signin, refresh, and signout.
type AuthService struct {
	userStore       UserStore
	rateLimiter     RateLimiter
	revocationStore RevocationStore
	issuer          *auth.Issuer
	verifier        *auth.Verifier
	clock           domain.Clock
	logger          *slog.Logger

	passwordCost  int
	rotate        bool
	revokeSignout bool
	limitPerEmail int
	limitPerIP    int
	window        time.Duration
}

// NewAuthService creates a new AuthService with the given dependencies.
// Zero limits fall back to the domain defaults.
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	if cfg.Clock == nil {
		cfg.Clock = domain.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = domain.PasswordHashCost
	}
	if cfg.SigninLimitPerEmail <= 0 {
		cfg.SigninLimitPerEmail = domain.SigninRateLimitPerEmail
	}
	if cfg.SigninLimitPerIP <= 0 {
		cfg.SigninLimitPerIP = domain.SigninRateLimitPerIP
	}
	if cfg.SigninWindow <= 0 {
		cfg.SigninWindow = domain.SigninRateLimitWindow
	}
	return &AuthService{
		userStore:       cfg.UserStore,
		rateLimiter:     cfg.RateLimiter,
		revocationStore: cfg.RevocationStore,
		issuer:          cfg.Issuer,
		verifier:        cfg.Verifier,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		passwordCost:    cfg.PasswordCost,
		rotate:          cfg.RotateRefreshTokens,
		revokeSignout:   cfg.RevokeOnSignout,
		limitPerEmail:   cfg.SigninLimitPerEmail,
		limitPerIP:      cfg.SigninLimitPerIP,
		window:          cfg.SigninWindow,
	}
}

// issueSession mints an access and a refresh token for user.
func (s *AuthService) issueSession(ctx context.Context, user UserRecord) (*SessionResult, error) {
	identity, err := user.Identity()
	if err != nil {
		return nil, err
	}
	access, err := s.issuer.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(identity.UserID)
	if err != nil {
		return nil, err
	}
	tokenMintedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", auth.TypeAccess)))
	tokenMintedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", auth.TypeRefresh)))
	return &SessionResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// remaining returns how long a token expiring at exp stays valid.
func (s *AuthService) remaining(exp time.Time) time.Duration {
	return exp.Sub(domain.NowUTC(s.clock))
}
