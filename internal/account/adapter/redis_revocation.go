package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roomshare/roomshare-api/internal/account/app"
	redisclient "github.com/roomshare/roomshare-api/internal/redis"
)

// revokedJTIPrefix is the Redis key prefix for revoked refresh token ids.
// Key pattern: revoked_jti:{jti}.
const revokedJTIPrefix = "revoked_jti:"

// Compile-time check: RevocationStore satisfies app.RevocationStore.
var _ app.RevocationStore = (*RevocationStore)(nil)

// RevocationStore records revoked refresh token ids in Redis. Entries expire
// together with the token they revoke.
type RevocationStore struct {
	cmd redisclient.Cmdable
}

// NewRevocationStore creates a RevocationStore that uses cmd for Redis operations.
func NewRevocationStore(cmd redisclient.Cmdable) *RevocationStore {
	return &RevocationStore{cmd: cmd}
}

// Revoke marks jti as revoked for ttl.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "redis.revocation.revoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
	)

	if err := s.cmd.Set(ctx, revokedJTIPrefix+jti, "1", ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("revoke JTI %q: %w", jti, err)
	}
	return nil
}

// IsRevoked checks whether jti has been revoked. Returns (true, err) on Redis
// failure so callers deny by default.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.revocation.is_revoked")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EXISTS"),
	)

	n, err := s.cmd.Exists(ctx, revokedJTIPrefix+jti).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return true, fmt.Errorf("check revocation %q: %w", jti, err)
	}
	return n > 0, nil
}
