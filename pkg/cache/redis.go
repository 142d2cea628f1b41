package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// RedisConfig configures [NewRedisCache].
type RedisConfig struct {
	Addr      string // host:port
	Password  string
	DB        int
	Namespace string // Prepended to every key; defaults to "cpanmeta:"
}

// RedisCache stores entries in Redis with native key expiration.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, cerrors.Wrap(cerrors.ErrCodeCacheFailure, err, "connect to redis at %s", cfg.Addr)
	}
	return newRedisCache(client, cfg.Namespace), nil
}

func newRedisCache(client *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = "cpanmeta:"
	}
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) key(k string) string {
	return c.namespace + k
}

// Get retrieves a value from Redis. Transient network errors are retried.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		var err error
		data, err = c.client.Get(ctx, c.key(key)).Bytes()
		return retryableNet(err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cerrors.Wrap(cerrors.ErrCodeCacheFailure, err, "redis get")
	}
	return data, true, nil
}

// Set stores a value in Redis. A non-positive ttl stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	err := RetryWithBackoff(ctx, func() error {
		return retryableNet(c.client.Set(ctx, c.key(key), data, ttl).Err())
	})
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeCacheFailure, err, "redis set")
	}
	return nil
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeCacheFailure, err, "redis del")
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
