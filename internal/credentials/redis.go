package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// RedisCache shares verification results between instances.
type RedisCache struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ Cache = (*RedisCache)(nil)

// RedisOption configures RedisCache.
type RedisOption func(*RedisCache)

// WithKeyPrefix sets the Redis key prefix (default "ecoswitch:verify:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.keyPrefix = prefix }
}

// NewRedisCache wraps a connected *goredis.Client or *goredis.ClusterClient.
func NewRedisCache(client goredis.Cmdable, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:    client,
		keyPrefix: "ecoswitch:verify:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(kind providers.Kind, key string) string {
	return c.keyPrefix + string(kind) + ":" + fingerprint(kind, key)
}

func (c *RedisCache) Get(ctx context.Context, kind providers.Kind, key string) (bool, bool, error) {
	v, err := c.client.Get(ctx, c.key(kind, key)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get: %w", err)
	}
	return v == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, kind providers.Kind, key string, valid bool, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	v := "0"
	if valid {
		v = "1"
	}
	if err := c.client.Set(ctx, c.key(kind, key), v, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
