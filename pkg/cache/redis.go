// backend/pkg/cache/redis.go
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// CountCache holds advisory counts (e.g. estimated question-bank sizes).
// A miss or an error must never change the outcome of a request.
type CountCache interface {
	GetCount(ctx context.Context, key string) (int64, bool, error)
	SetCount(ctx context.Context, key string, value int64, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

const keyPrefix = "count:"

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	n, err := c.client.Get(ctx, keyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisCache) SetCount(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (c *RedisCache) Evict(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}
