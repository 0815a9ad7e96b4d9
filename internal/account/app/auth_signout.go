package app

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roomshare/roomshare-api/internal/observability"
)

// Signout ends a session. It never fails: the caller always clears the
// cookie. When revocation is enabled and the presented refresh token still
// verifies, its jti is revoked until the token's own expiry. Otherwise a
// copied refresh token stays usable until it expires.
func (s *AuthService) Signout(ctx context.Context, refreshToken string) {
	ctx, span := tracer.Start(ctx, "auth.signout")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	if !s.revokeSignout || refreshToken == "" {
		logger.InfoContext(ctx, "auth.signout", "revoked", false)
		return
	}

	claims, err := s.verifier.VerifyRefreshToken(refreshToken)
	if err != nil {
		logger.InfoContext(ctx, "auth.signout", "revoked", false)
		return
	}

	ttl := s.remaining(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	if err := s.revocationStore.Revoke(ctx, claims.ID, ttl); err != nil {
		span.RecordError(err)
		logger.WarnContext(ctx, "auth.signout_revoke_failed",
			"user_id", claims.Subject,
			"error", err,
		)
		return
	}

	sessionRevocationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "signout")))
	logger.InfoContext(ctx, "auth.signout",
		"user_id", claims.Subject,
		"revoked", true,
	)
}
