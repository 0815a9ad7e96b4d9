package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/observability"
)

const (
	signinEmailKeyPrefix = "rl:signin:email:"
	signinIPKeyPrefix    = "rl:signin:ip:"
)

// Signin checks an email and password and opens a session. An unknown email
// and a wrong password are indistinguishable to the caller.
func (s *AuthService) Signin(ctx context.Context, in SigninInput) (*SessionResult, error) {
	ctx, span := tracer.Start(ctx, "auth.signin")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	if in.Email == "" || in.Password == "" {
		span.SetStatus(codes.Error, "missing fields")
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrInvalidInput)
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_credentials")))
		span.SetStatus(codes.Error, "invalid email")
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.checkSigninLimit(ctx, signinEmailKeyPrefix+email, s.limitPerEmail); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if in.ClientIP != "" {
		if err := s.checkSigninLimit(ctx, signinIPKeyPrefix+in.ClientIP, s.limitPerIP); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	user, err := s.userStore.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_credentials")))
			span.SetStatus(codes.Error, "unknown email")
			return nil, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_credentials")))
			span.SetStatus(codes.Error, "wrong password")
			logger.InfoContext(ctx, "auth.signin_failed", "user_id", user.UserID)
			return nil, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := s.issueSession(ctx, *user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("issue session: %w", err)
	}

	logger.InfoContext(ctx, "auth.signin",
		"user_id", user.UserID,
	)
	return result, nil
}

// checkSigninLimit fails closed: a limiter error denies the attempt.
func (s *AuthService) checkSigninLimit(ctx context.Context, key string, limit int) error {
	allowed, err := s.rateLimiter.CheckAndIncrement(ctx, key, limit, int(s.window.Seconds()))
	if err != nil {
		return fmt.Errorf("signin rate limit: %v: %w", err, domain.ErrUnavailable)
	}
	if !allowed {
		rateLimitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("action", "signin")))
		return fmt.Errorf("too many signin attempts: %w", domain.ErrRateLimited)
	}
	return nil
}
