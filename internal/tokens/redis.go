package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// decimalsPrefix is the key prefix of cached mint decimals.
const decimalsPrefix = "token:decimals"

// RedisCache stores mint decimals in Redis without expiry; decimals never change.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache creates a Redis backed decimals cache.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) key(mint string) string {
	return fmt.Sprintf("%s:%s", decimalsPrefix, mint)
}

// GetDecimals implements DecimalsCache.
func (c *RedisCache) GetDecimals(ctx context.Context, mint string) (int, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(mint)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// SetDecimals implements DecimalsCache.
func (c *RedisCache) SetDecimals(ctx context.Context, mint string, decimals int) error {
	if err := c.rdb.Set(ctx, c.key(mint), decimals, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
