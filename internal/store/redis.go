package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMedium stores each key as a plain Redis string, so several processes
// sharing one Redis observe each other's writes on their next read.
type RedisMedium struct {
	client *redis.Client
}

// NewRedisMedium wraps a connected client.
func NewRedisMedium(client *redis.Client) *RedisMedium {
	return &RedisMedium{client: client}
}

func (m *RedisMedium) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (m *RedisMedium) Set(ctx context.Context, key, value string) error {
	if err := m.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (m *RedisMedium) Remove(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
