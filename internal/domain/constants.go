package domain

import "time"

// Token lifetimes. Expiry is embedded in the signed payload; nothing tracks
// it server-side.
const (
	AccessTokenLifetime  = 15 * time.Minute
	RefreshTokenLifetime = 7 * 24 * time.Hour
)

// Refresh cookie contract.
const (
	RefreshCookieName = "refresh_token"
	RefreshCookiePath = "/auth"
)

// Account limits.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt ignores bytes beyond 72
	MaxNameLength     = 100
	MaxEmailLength    = 254
	PasswordHashCost  = 10
	MaxRequestBody    = 1 << 20
)

// Signin throttling.
const (
	SigninRateLimitPerEmail = 5
	SigninRateLimitPerIP    = 20
	SigninRateLimitWindow   = 15 * time.Minute
)

// Timeout contracts.
const (
	StoreTimeout    = 5 * time.Second
	DynamoDBTimeout = 5 * time.Second
	RedisTimeout    = 2 * time.Second
	RefreshTimeout  = 10 * time.Second
)

// Graceful shutdown.
const (
	GracefulShutdownTimeout = 30 * time.Second
	ShutdownDrainDelay      = 500 * time.Millisecond
	ShutdownHTTPTimeout     = 10 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
)

// Role is the authorization role embedded in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValidRole checks if a role is known.
func IsValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}
