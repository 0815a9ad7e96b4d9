package adapter

import (
	"context"
	"time"

	"github.com/roomshare/roomshare-api/internal/account/app"
)

var (
	_ app.RateLimiter     = NoopRateLimiter{}
	_ app.RevocationStore = NoopRevocationStore{}
)

// NoopRateLimiter allows every request. Used when Redis is not configured.
type NoopRateLimiter struct{}

func (NoopRateLimiter) CheckAndIncrement(context.Context, string, int, int) (bool, error) {
	return true, nil
}

// NoopRevocationStore never revokes anything: refresh tokens stay valid until
// they expire.
type NoopRevocationStore struct{}

func (NoopRevocationStore) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopRevocationStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
