// Package config provides configuration loading using koanf.
// Precedence: ROOMSHARE_-prefixed environment variables over compiled
// defaults. A double underscore in a variable name marks nesting, so
// ROOMSHARE_AUTH__ACCESS_SECRET sets auth.access_secret.
package config

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// EnvPrefix is the prefix every configuration environment variable carries.
const EnvPrefix = "ROOMSHARE_"

// Secret sources.
const (
	SecretsFromEnv = "env"
	SecretsFromAWS = "aws"
)

// Credential store drivers.
const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	HTTP  HTTPConfig  `koanf:"http"`
	Auth  AuthConfig  `koanf:"auth"`
	Store StoreConfig `koanf:"store"`

	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	AWS      AWSConfig      `koanf:"aws"`
	OTEL     OTELConfig     `koanf:"otel"`
}

// HTTPConfig holds the REST listener configuration.
type HTTPConfig struct {
	Port      int    `koanf:"port"`
	APIPrefix string `koanf:"api_prefix"`

	// TrustedProxies is a comma-separated list of CIDRs or addresses whose
	// X-Forwarded-For header is believed. Empty trusts no one.
	TrustedProxies string `koanf:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies.
func (h HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(h.TrustedProxies, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("%w: http.trusted_proxies %q", domain.ErrConfigInvalid, item)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("%w: http.trusted_proxies %q", domain.ErrConfigInvalid, item)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// AuthConfig holds token and signin settings.
type AuthConfig struct {
	AccessSecret  domain.SecretString `koanf:"access_secret"`
	RefreshSecret domain.SecretString `koanf:"refresh_secret"`

	// SecretsSource is "env" (the two keys above) or "aws" (SecretID in
	// Secrets Manager).
	SecretsSource string `koanf:"secrets_source"`
	SecretID      string `koanf:"secret_id"`

	Issuer       string `koanf:"issuer"`
	PasswordCost int    `koanf:"password_cost"`

	RotateRefreshTokens bool `koanf:"rotate_refresh_tokens"`
	RevokeOnSignout     bool `koanf:"revoke_on_signout"`

	SigninLimitPerEmail int           `koanf:"signin_limit_per_email"`
	SigninLimitPerIP    int           `koanf:"signin_limit_per_ip"`
	SigninWindow        time.Duration `koanf:"signin_window"`
}

// StoreConfig selects the credential store.
type StoreConfig struct {
	Driver     string `koanf:"driver"`
	SQLitePath string `koanf:"sqlite_path"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint   string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	UsersTable string        `koanf:"users_table"`
	Timeout    time.Duration `koanf:"timeout"`
}

// RedisConfig holds Redis configuration. An empty Addr disables signin
// throttling and token revocation.
type RedisConfig struct {
	Addr     string              `koanf:"addr"`
	Password domain.SecretString `koanf:"password"`
	DB       int                 `koanf:"db"`
	Timeout  time.Duration       `koanf:"timeout"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		HTTP: HTTPConfig{
			Port:      5000,
			APIPrefix: "/api",
		},
		Auth: AuthConfig{
			SecretsSource:       SecretsFromEnv,
			Issuer:              "roomshare-api",
			PasswordCost:        domain.PasswordHashCost,
			SigninLimitPerEmail: domain.SigninRateLimitPerEmail,
			SigninLimitPerIP:    domain.SigninRateLimitPerIP,
			SigninWindow:        domain.SigninRateLimitWindow,
		},
		Store: StoreConfig{
			Driver:     StoreSQLite,
			SQLitePath: "roomshare.db",
		},
		DynamoDB: DynamoDBConfig{
			UsersTable: "users",
			Timeout:    domain.DynamoDBTimeout,
		},
		Redis: RedisConfig{
			Timeout: domain.RedisTimeout,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		OTEL: OTELConfig{
			ServiceName: "roomshare-api",
		},
	}
}

// Load reads configuration from the environment over compiled defaults and
// validates it. Missing required keys are a startup failure.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps ROOMSHARE_AUTH__ACCESS_SECRET to auth.access_secret.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks required keys and cross-field constraints.
func (c *Config) Validate() error {
	switch c.Auth.SecretsSource {
	case SecretsFromEnv:
		if c.Auth.AccessSecret.IsEmpty() {
			return fmt.Errorf("%w: auth.access_secret", domain.ErrConfigRequired)
		}
		if c.Auth.RefreshSecret.IsEmpty() {
			return fmt.Errorf("%w: auth.refresh_secret", domain.ErrConfigRequired)
		}
		if c.Auth.AccessSecret.Expose() == c.Auth.RefreshSecret.Expose() {
			return fmt.Errorf("%w: auth.access_secret and auth.refresh_secret must differ", domain.ErrConfigInvalid)
		}
	case SecretsFromAWS:
		if c.Auth.SecretID == "" {
			return fmt.Errorf("%w: auth.secret_id", domain.ErrConfigRequired)
		}
	default:
		return fmt.Errorf("%w: auth.secrets_source %q", domain.ErrConfigInvalid, c.Auth.SecretsSource)
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path", domain.ErrConfigRequired)
		}
	case StoreDynamoDB:
		if c.DynamoDB.UsersTable == "" {
			return fmt.Errorf("%w: dynamodb.users_table", domain.ErrConfigRequired)
		}
	default:
		return fmt.Errorf("%w: store.driver %q", domain.ErrConfigInvalid, c.Store.Driver)
	}

	if c.Auth.RevokeOnSignout && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr (needed by auth.revoke_on_signout)", domain.ErrConfigRequired)
	}

	if c.HTTP.APIPrefix != "" && !strings.HasPrefix(c.HTTP.APIPrefix, "/") {
		return fmt.Errorf("%w: http.api_prefix must start with /", domain.ErrConfigInvalid)
	}

	if _, err := c.HTTP.TrustedProxyPrefixes(); err != nil {
		return err
	}

	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
