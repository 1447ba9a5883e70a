// Package rediscache implements the L2 RemoteCache capability on top of
// redis/go-redis/v9.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentmem/agentmem/internal/apperr"
)

// Cache is the redis-backed RemoteCache implementation.
type Cache struct {
	client *redis.Client
	prefix string
}

// New wraps an existing redis client. prefix namespaces every key so
// multiple deployments can share one Redis instance.
func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, apperr.Transientf("rediscache.get", "%s", err)
	}
	ttl, err := c.client.TTL(ctx, c.key(key)).Result()
	if err != nil {
		return nil, 0, false, apperr.Transientf("rediscache.get: ttl", "%s", err)
	}
	return val, ttl, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return apperr.Transientf("rediscache.set", "%s", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return apperr.Transientf("rediscache.delete", "%s", err)
	}
	return nil
}
