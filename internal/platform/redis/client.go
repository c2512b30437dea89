// Package redis owns the shared Redis connection. Redis is optional
// infrastructure here: the revoked-nonce fast path and the distributed
// consistency lock use it when configured, and fall back to in-process
// implementations when they are handed a nil client.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"calibra/internal/platform/config"
)

// Client wraps go-redis so callers depend on this package, not the driver.
type Client struct {
	*redis.Client
}

// New connects using the configured URL. An empty URL means Redis is not
// deployed; callers get (nil, nil) and must degrade to their in-process
// fallback. Connection problems are surfaced at startup via an eager ping
// rather than on the first revocation check.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports connection liveness for the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
