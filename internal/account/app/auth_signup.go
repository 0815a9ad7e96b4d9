package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/observability"
)

// Signup creates a user account with role "user" and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*SessionResult, error) {
	ctx, span := tracer.Start(ctx, "auth.signup")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	name, err := normalizeName(in.Name)
	if err != nil {
		span.SetStatus(codes.Error, "invalid name")
		return nil, err
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		span.SetStatus(codes.Error, "invalid email")
		return nil, err
	}
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, err
	}

	_, err = s.userStore.FindByEmail(ctx, email)
	switch {
	case err == nil:
		span.SetStatus(codes.Error, "email taken")
		return nil, fmt.Errorf("email %q: %w", email, domain.ErrAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password, s.passwordCost)
	if err != nil {
		span.SetStatus(codes.Error, "password rejected")
		return nil, err
	}

	now := domain.NowUTC(s.clock)
	user := UserRecord{
		UserID:       domain.GenerateUserID().String(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userStore.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create user: %w", err)
	}
	signupsTotal.Add(ctx, 1)

	result, err := s.issueSession(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("issue session: %w", err)
	}

	logger.InfoContext(ctx, "auth.signup",
		"user_id", user.UserID,
	)
	return result, nil
}
