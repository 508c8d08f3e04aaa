// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis connection used for NLU result caching.
type RedisClient struct {
	Client redis.Cmdable
	closer func() error
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb, closer: rdb.Close}, nil
}

// NewRedisFromClient wraps any redis.Cmdable (miniredis-backed or redismock in tests).
func NewRedisFromClient(c redis.Cmdable) *RedisClient {
	return &RedisClient{Client: c}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// Get returns found=false on a cache miss instead of an error.
func (c *RedisClient) Get(ctx context.Context, key string) (value string, found bool, err error) {
	value, err = c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Client.Set(ctx, key, value, expiration).Err()
}
