package adapter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roomshare/roomshare-api/internal/account/app"
	redisclient "github.com/roomshare/roomshare-api/internal/redis"
)

// Compile-time check: RateLimiter satisfies app.RateLimiter.
var _ app.RateLimiter = (*RateLimiter)(nil)

// rateLimitScript increments a counter and sets its TTL on the first write,
// giving a fixed window without EXPIRE ... NX.
var rateLimitScript = redisclient.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter implements fixed-window rate limiting backed by Redis.
// Redis errors deny the request.
type RateLimiter struct {
	cmd redisclient.Cmdable
}

// NewRateLimiter creates a RateLimiter that uses cmd for Redis operations.
func NewRateLimiter(cmd redisclient.Cmdable) *RateLimiter {
	return &RateLimiter{cmd: cmd}
}

// CheckAndIncrement atomically increments the counter for key and reports
// whether the count is still within limit for the current window.
// Returns (false, err) on Redis failure.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.ratelimit.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVALSHA"),
	)

	count, err := rateLimitScript.Run(ctx, r.cmd, []string{key}, windowSeconds).Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("rate limit check %q: %w", key, err)
	}

	return count <= int64(limit), nil
}
