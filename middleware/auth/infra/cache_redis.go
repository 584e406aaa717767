package infra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache implementa domain.TokenCache sobre redis.
//
// Cada operação é um único round trip com timeout curto: o cache fora do ar
// degrada para miss na camada de aplicação em vez de segurar a requisição.
type RedisTokenCache struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

type RedisCacheOption func(*RedisTokenCache)

func WithCacheOpTimeout(d time.Duration) RedisCacheOption {
	return func(c *RedisTokenCache) { c.opTimeout = d }
}

func NewRedisTokenCache(rdb *redis.Client, opts ...RedisCacheOption) *RedisTokenCache {
	c := &RedisTokenCache{
		rdb:       rdb,
		opTimeout: 150 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisTokenCache) Del(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisTokenCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}
