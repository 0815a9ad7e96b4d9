package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"

	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/observability"
)

// UpdateInput carries profile changes. Empty fields are left unchanged.
type UpdateInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// UserServiceConfig holds the dependencies for UserService.
type UserServiceConfig struct {
	UserStore    UserStore
	Clock        domain.Clock
	Logger       *slog.Logger
	PasswordCost int
}

// UserService manages account profiles. Every operation is limited to the
// account owner or an admin.
type UserService struct {
	userStore    UserStore
	clock        domain.Clock
	logger       *slog.Logger
	passwordCost int
}

// NewUserService creates a new UserService with the given dependencies.
func NewUserService(cfg UserServiceConfig) *UserService {
	if cfg.Clock == nil {
		cfg.Clock = domain.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = domain.PasswordHashCost
	}
	return &UserService{
		userStore:    cfg.UserStore,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		passwordCost: cfg.PasswordCost,
	}
}

// Get returns the account with the given id.
func (s *UserService) Get(ctx context.Context, caller auth.Identity, rawID string) (*UserRecord, error) {
	ctx, span := tracer.Start(ctx, "user.get")
	defer span.End()

	id, err := authorize(caller, rawID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	user, err := s.userStore.GetByID(ctx, id.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies profile changes. A new email must not belong to another
// account.
func (s *UserService) Update(ctx context.Context, caller auth.Identity, rawID string, in UpdateInput) (*UserRecord, error) {
	ctx, span := tracer.Start(ctx, "user.update")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	id, err := authorize(caller, rawID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	user, err := s.userStore.GetByID(ctx, id.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get user: %w", err)
	}

	if in.Name != "" {
		if user.Name, err = normalizeName(in.Name); err != nil {
			return nil, err
		}
	}
	if in.Phone != "" {
		if user.Phone, err = normalizePhone(in.Phone); err != nil {
			return nil, err
		}
	}
	if in.Password != "" {
		if user.PasswordHash, err = auth.HashPassword(in.Password, s.passwordCost); err != nil {
			return nil, err
		}
	}
	if in.Email != "" {
		email, err := domain.NormalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			user.Email = email
		}
	}
	user.UpdatedAt = domain.NowUTC(s.clock)

	if err := s.userStore.Update(ctx, *user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("update user: %w", err)
	}

	logger.InfoContext(ctx, "user.updated",
		"user_id", user.UserID,
		"by", caller.UserID.String(),
	)
	return user, nil
}

// Delete removes the account. Tokens already issued to it stay valid until
// they expire, but refresh fails because the record is gone.
func (s *UserService) Delete(ctx context.Context, caller auth.Identity, rawID string) error {
	ctx, span := tracer.Start(ctx, "user.delete")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	id, err := authorize(caller, rawID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.userStore.Delete(ctx, id.String()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete user: %w", err)
	}

	logger.InfoContext(ctx, "user.deleted",
		"user_id", id.String(),
		"by", caller.UserID.String(),
	)
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.userStore.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email %q: %w", email, domain.ErrAlreadyExists)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find user by email: %w", err)
	}
}

// authorize parses the target id and checks that caller owns it or is an
// admin.
func authorize(caller auth.Identity, rawID string) (domain.UserID, error) {
	id, err := domain.NewUserID(rawID)
	if err != nil {
		return domain.UserID{}, err
	}
	if caller.UserID != id && !caller.IsAdmin() {
		return domain.UserID{}, fmt.Errorf("user %s acting on %s: %w", caller.UserID, id, domain.ErrForbidden)
	}
	return id, nil
}
