// Package app wires configuration to the concrete storage medium shared by
// the server and the maintenance command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/config"
	"github.com/evently-demo/backend/internal/store"
	"github.com/evently-demo/backend/pkg/database"
	"github.com/evently-demo/backend/pkg/redis"
)

// Backing is an opened medium plus the connections it holds.
type Backing struct {
	Medium store.Medium
	// Redis is set when a Redis connection was opened, either for the medium
	// or for the auth event bridge.
	Redis   *redis.Client
	closers []func()
}

// Close releases every connection in reverse order of opening.
func (b *Backing) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBacking connects the medium selected by cfg.Store.Medium.
func OpenBacking(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backing, error) {
	b := &Backing{}
	switch cfg.Store.Medium {
	case "memory":
		b.Medium = store.NewMemoryMedium()
	case "redis":
		if err := b.openRedis(ctx, cfg, logger); err != nil {
			return nil, err
		}
		b.Medium = store.NewRedisMedium(b.Redis.Client)
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		if err := database.Migrate(ctx, pool, logger); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		b.Medium = store.NewPostgresMedium(pool)
	default:
		return nil, fmt.Errorf("unknown store medium %q", cfg.Store.Medium)
	}

	if cfg.Redis.AuthEvents && b.Redis == nil {
		if err := b.openRedis(ctx, cfg, logger); err != nil {
			b.Close()
			return nil, err
		}
	}
	logger.Info("storage medium ready", zap.String("medium", cfg.Store.Medium), zap.String("prefix", cfg.Store.KeyPrefix))
	return b, nil
}

func (b *Backing) openRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	b.Redis = rdb
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	return nil
}
