// Package cachesvc implements the stats cache on redis.
package cachesvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/stats"
)

const keyPrefix = "profpay:"

type RedisCache struct {
	client *redis.Client
}

var _ stats.Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, stats.ErrCacheMiss
	}
	return b, errors.Wrap(err, "redis get")
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Wrap(c.client.Set(ctx, keyPrefix+key, value, ttl).Err(), "redis set")
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, keyPrefix+k)
	}
	return errors.Wrap(c.client.Del(ctx, prefixed...).Err(), "redis del")
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache caches nothing.
type NoopCache struct{}

var _ stats.Cache = NoopCache{}

func (NoopCache) Get(context.Context, string) ([]byte, error)              { return nil, stats.ErrCacheMiss }
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error                  { return nil }
func (NoopCache) Close() error                                             { return nil }

// Cache is a stats.Cache that may hold a connection.
type Cache interface {
	stats.Cache
	Close() error
}

// New connects to redis when redis.addr is set. Caching is disabled when it is not set or when redis does not answer.
func New(ctx context.Context, conf *core.Config, logger core.Logger) Cache {
	if conf.Redis.Addr == "" {
		logger.Info("redis.addr not set, stats caching disabled")
		return NoopCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, stats caching disabled: "+err.Error(), err)
		_ = client.Close()
		return NoopCache{}
	}
	return NewRedisCache(client)
}
