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

// Refresh exchanges a refresh token for a new access token built from the
// current user record. An expired refresh token is not recoverable, so every
// verification failure is reported as domain.ErrCredentialInvalid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	if refreshToken == "" {
		refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "missing")))
		span.SetStatus(codes.Error, "no refresh token")
		return nil, domain.ErrNoCredential
	}

	claims, err := s.verifier.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.refreshRejected(ctx, auth.Classify(err).String())
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("refresh: %w (%v)", domain.ErrCredentialInvalid, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		s.refreshRejected(ctx, "bad_subject")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	revoked, err := s.revocationStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("check revocation: %v: %w", err, domain.ErrUnavailable)
	}
	if revoked {
		s.refreshRejected(ctx, "revoked")
		span.SetStatus(codes.Error, "refresh token revoked")
		return nil, fmt.Errorf("refresh token revoked: %w", domain.ErrCredentialInvalid)
	}

	user, err := s.userStore.GetByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.refreshRejected(ctx, "user_gone")
			span.SetStatus(codes.Error, "user not found")
			return nil, fmt.Errorf("refresh subject no longer exists: %w", domain.ErrCredentialInvalid)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get user: %w", err)
	}

	identity, err := user.Identity()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("user identity: %w", err)
	}
	access, err := s.issuer.IssueAccessToken(identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	tokenMintedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", auth.TypeAccess)))

	result := &RefreshResult{AccessToken: access, User: *user}
	if s.rotate {
		next, err := s.rotateRefreshToken(ctx, claims)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		result.RefreshToken = next
	}

	refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	logger.InfoContext(ctx, "auth.refreshed",
		"user_id", user.UserID,
		"rotated", s.rotate,
	)
	return result, nil
}

// rotateRefreshToken issues a replacement refresh token and revokes the
// presented one for the rest of its lifetime.
func (s *AuthService) rotateRefreshToken(ctx context.Context, old *auth.RefreshClaims) (*auth.Token, error) {
	userID, err := old.UserID()
	if err != nil {
		return nil, err
	}
	next, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if ttl := s.remaining(old.ExpiresAt.Time); ttl > 0 {
		if err := s.revocationStore.Revoke(ctx, old.ID, ttl); err != nil {
			return nil, fmt.Errorf("revoke rotated refresh token: %v: %w", err, domain.ErrUnavailable)
		}
		sessionRevocationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "rotation")))
	}
	tokenMintedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", auth.TypeRefresh)))
	return &next, nil
}

func (s *AuthService) refreshRejected(ctx context.Context, reason string) {
	refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
	authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "refresh_"+reason)))
}
