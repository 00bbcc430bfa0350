package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/citygen/pkg/httputil"
)

// RedisConfig configures a [RedisCache].
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr" json:"addr"`
	Password string `toml:"password" yaml:"password" json:"-"`
	DB       int    `toml:"db" yaml:"db" json:"db"`
	// Prefix namespaces every key so several deployments can share one
	// instance.
	Prefix string `toml:"prefix" yaml:"prefix" json:"prefix"`
}

// pingPolicy bounds how long NewRedisCache waits for the server.
var pingPolicy = httputil.Policy{Attempts: 3, Delay: 200 * time.Millisecond, MaxDelay: time.Second}

// RedisCache stores entries in Redis. Expiration is delegated to the
// server via key TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection with a PING,
// retrying transient failures.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := pingPolicy.Do(ctx, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return httputil.Retryable(fmt.Errorf("%w: ping %s: %v", ErrNetwork, cfg.Addr, err))
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Get retrieves a value. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		recordGet(ctx, key, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get: %v", ErrNetwork, err)
	}
	recordGet(ctx, key, true)
	return data, true, nil
}

// Set stores a value with the given TTL. A zero ttl keeps the key forever.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrNetwork, err)
	}
	recordSet(ctx, key, len(data))
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrNetwork, err)
	}
	return nil
}

// Clear deletes every key under the configured prefix and returns the
// number removed. Without a prefix it only removes citygen keys.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	patterns := []string{c.prefix + "*"}
	if c.prefix == "" {
		patterns = []string{"run:*", "artifact:*"}
	}

	count := 0
	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return count, fmt.Errorf("%w: scan: %v", ErrNetwork, err)
			}
			if len(keys) > 0 {
				n, err := c.client.Del(ctx, keys...).Result()
				if err != nil {
					return count, fmt.Errorf("%w: delete: %v", ErrNetwork, err)
				}
				count += int(n)
			}
			if cursor = next; cursor == 0 {
				break
			}
		}
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
