// Package redis owns the go-redis client used by the signin rate limiter and
// the token revocation store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// Cmdable is a type alias for redis.Cmdable. Adapters accept this interface
// instead of importing go-redis directly.
type Cmdable = redis.Cmdable

// Script is a Lua script bound to its SHA.
type Script = redis.Script

// NewScript re-exports redis.NewScript.
var NewScript = redis.NewScript

// Nil is returned by reads of missing keys.
const Nil = redis.Nil

// Config holds the parameters needed to connect to a Redis instance.
type Config struct {
	Addr     string
	Password domain.SecretString
	DB       int
	Timeout  time.Duration
}

// Client wraps a go-redis client. The RDB field satisfies Cmdable and is the
// handle adapters use for Redis operations.
type Client struct {
	RDB *redis.Client
}

// NewClient creates a new Redis client configured from cfg. The same timeout
// applies to dialing, reads, and writes.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.RedisTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password.Expose(),
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	return &Client{RDB: rdb}
}

// Ping checks connectivity. Startup fails fast when Redis is configured but
// unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.RDB.Close()
}
