package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache backed by Redis
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// newRedisCache creates a new Redis cache instance
func newRedisCache(cfg Config) (*RedisCache, error) {
	opts := &redis.UniversalOptions{
		Addrs:    []string{net.JoinHostPort(cfg.Host, cfg.Port)},
		Password: cfg.Password,
		DB:       cfg.Database,
	}

	// Use URL if provided
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = &redis.UniversalOptions{
			Addrs:    []string{opt.Addr},
			Password: opt.Password,
			DB:       opt.DB,
		}
		if opt.TLSConfig != nil {
			opts.TLSConfig = opt.TLSConfig
		}
	}

	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}

	return &RedisCache{
		client:    redis.NewUniversalClient(opts),
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Get retrieves a value by key
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rc.client.Get(ctx, rc.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set stores a value with optional TTL
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rc.client.Set(ctx, rc.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Exists checks if a key exists
func (rc *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rc.client.Exists(ctx, rc.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Clear removes all keys under this cache's prefix
func (rc *RedisCache) Clear(ctx context.Context) error {
	if rc.keyPrefix == "" {
		if err := rc.client.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("redis flushdb: %w", err)
		}
		return nil
	}

	iter := rc.client.Scan(ctx, 0, rc.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Close closes the connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Ping checks if Redis is reachable
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
