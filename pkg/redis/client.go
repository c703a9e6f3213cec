// Package redis connects the shared Redis used as a storage medium and as the
// auth event bus.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options selects the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps go-redis client with optional logger.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("Redis client connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Client{Client: rdb, logger: logger}, nil
}

// Close closes the connection pool and logs the shutdown.
func (c *Client) Close() error {
	c.logger.Info("Redis client closing")
	return c.Client.Close()
}
