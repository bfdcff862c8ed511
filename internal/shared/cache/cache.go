// Package cache is a best-effort JSON cache over Redis. Nothing here ever
// fails a request: errors degrade to a miss and are logged at debug.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL     = 60 * time.Second
	DefaultTimeout = 200 * time.Millisecond
)

// ProductsKey is the key of one catalog page.
func ProductsKey(skip, limit int) string {
	return fmt.Sprintf("produtos:%d:%d", skip, limit)
}

// RedisCache stores JSON values with a TTL. A nil client disables it.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	logger  *logger.Logger
}

// NewRedisCache wraps client. Zero ttl or timeout fall back to the defaults.
func NewRedisCache(client *redis.Client, ttl, timeout time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisCache{client: client, ttl: ttl, timeout: timeout, logger: log}
}

// NewClient builds a client from a redis:// URL and pings it once. A failed
// ping is logged, not returned: the client reconnects lazily.
func NewClient(ctx context.Context, url string, log *logger.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error(ctx, "redis_unavailable", "Redis ping failed; cache degrades to misses", err)
	} else {
		log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{"addr": opts.Addr})
	}
	return client, nil
}

// Get decodes the value at key into dest and reports a hit.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.debug(ctx, "cache_get_failed", key, err)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.debug(ctx, "cache_decode_failed", key, err)
		return false
	}
	return true
}

// Set stores value as JSON. ttl <= 0 uses the cache default.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.debug(ctx, "cache_encode_failed", key, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, string(payload), ttl).Err(); err != nil {
		c.debug(ctx, "cache_set_failed", key, err)
	}
}

func (c *RedisCache) debug(ctx context.Context, action, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(ctx, action, "cache degraded to miss", map[string]any{"key": key, "error": err.Error()})
}
