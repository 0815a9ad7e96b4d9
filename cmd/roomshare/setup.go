package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roomshare/roomshare-api/internal/account/adapter"
	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/account/port"
	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/awsconf"
	"github.com/roomshare/roomshare-api/internal/config"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/dynamo"
	"github.com/roomshare/roomshare-api/internal/redis"
	"github.com/roomshare/roomshare-api/internal/server"
)

// setup is the composition root. It creates infrastructure clients,
// adapters, the auth and user services, and registers the REST routes.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger
	clock := domain.RealClock{}

	var closers []func() error
	closeAll := func(context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	// 1. Signing secrets.
	secrets, err := loadSecrets(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("roomshare setup: load secrets: %w", err)
	}

	// 2. Credential store.
	userStore, closeStore, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("roomshare setup: open user store: %w", err)
	}
	closers = append(closers, closeStore)

	// 3. Signin throttling and token revocation.
	var (
		rateLimiter     app.RateLimiter     = adapter.NoopRateLimiter{}
		revocationStore app.RevocationStore = adapter.NoopRevocationStore{}
	)
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		closers = append(closers, redisClient.Close)
		if err := redisClient.Ping(ctx); err != nil {
			_ = closeAll(ctx)
			return nil, fmt.Errorf("roomshare setup: %w", err)
		}
		rateLimiter = adapter.NewRateLimiter(redisClient.RDB)
		revocationStore = adapter.NewRevocationStore(redisClient.RDB)
	} else {
		logger.Warn("redis not configured: signin throttling and token revocation disabled")
	}
	if cfg.Auth.RotateRefreshTokens && !cfg.RedisEnabled() {
		logger.Warn("refresh rotation without redis: superseded refresh tokens stay valid until expiry")
	}

	// 4. Auth core.
	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secrets: secrets,
		Issuer:  cfg.Auth.Issuer,
		Clock:   clock,
	})
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secrets: secrets,
		Issuer:  cfg.Auth.Issuer,
		Clock:   clock,
	})

	// 5. Services.
	authSvc := app.NewAuthService(app.AuthServiceConfig{
		UserStore:           userStore,
		RateLimiter:         rateLimiter,
		RevocationStore:     revocationStore,
		Issuer:              issuer,
		Verifier:            verifier,
		Clock:               clock,
		Logger:              logger,
		PasswordCost:        cfg.Auth.PasswordCost,
		RotateRefreshTokens: cfg.Auth.RotateRefreshTokens,
		RevokeOnSignout:     cfg.Auth.RevokeOnSignout,
		SigninLimitPerEmail: cfg.Auth.SigninLimitPerEmail,
		SigninLimitPerIP:    cfg.Auth.SigninLimitPerIP,
		SigninWindow:        cfg.Auth.SigninWindow,
	})
	userSvc := app.NewUserService(app.UserServiceConfig{
		UserStore:    userStore,
		Clock:        clock,
		Logger:       logger,
		PasswordCost: cfg.Auth.PasswordCost,
	})

	// 6. REST routes.
	cookies := port.CookieConfig{
		Path:   cfg.HTTP.APIPrefix + domain.RefreshCookiePath,
		Secure: cfg.IsProd(),
	}
	port.Routes(deps.Router, cfg.HTTP.APIPrefix,
		port.NewAuthHandler(authSvc, cookies),
		port.NewUserHandler(userSvc, cookies),
		verifier,
	)

	logger.InfoContext(ctx, "roomshare api initialized",
		slog.String("store", cfg.Store.Driver),
		slog.String("api_prefix", cfg.HTTP.APIPrefix),
		slog.Bool("redis", cfg.RedisEnabled()),
	)

	return closeAll, nil
}

// loadSecrets reads the two signing secrets from the environment or from
// AWS Secrets Manager.
func loadSecrets(ctx context.Context, cfg *config.Config) (auth.Secrets, error) {
	if cfg.Auth.SecretsSource == config.SecretsFromAWS {
		awsCfg, err := awsconf.Load(ctx, awsconf.Config{
			Region:   cfg.AWS.Region,
			Endpoint: cfg.AWS.Endpoint,
		})
		if err != nil {
			return auth.Secrets{}, err
		}
		src := adapter.NewSecretsManagerSource(adapter.NewSecretsManagerClient(awsCfg), cfg.Auth.SecretID)
		return src.Load(ctx)
	}

	secrets := auth.Secrets{
		Access:  domain.SecretBytes(cfg.Auth.AccessSecret.Expose()),
		Refresh: domain.SecretBytes(cfg.Auth.RefreshSecret.Expose()),
	}
	if err := secrets.Validate(); err != nil {
		return auth.Secrets{}, err
	}
	return secrets, nil
}

// openUserStore returns the configured credential store and its closer.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app.UserStore, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDynamoDB:
		client, err := dynamo.NewClient(ctx, awsconf.Config{
			Region:   cfg.AWS.Region,
			Endpoint: firstNonEmpty(cfg.DynamoDB.Endpoint, cfg.AWS.Endpoint),
			Timeout:  cfg.DynamoDB.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using dynamodb credential store", slog.String("table", cfg.DynamoDB.UsersTable))
		store := adapter.NewDynamoUserStore(client.DB, cfg.DynamoDB.UsersTable, cfg.DynamoDB.Timeout)
		return store, func() error { return nil }, nil
	default:
		store, err := adapter.OpenSQLiteUserStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite credential store", slog.String("path", cfg.Store.SQLitePath))
		return store, store.Close, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
