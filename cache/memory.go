package cache

import (
	"context"
	"sync"
	"time"
)

// item represents a cached item with expiration
type item struct {
	value      []byte
	expiration int64
}

// MemoryCache implements an in-memory cache with TTL support
type MemoryCache struct {
	mu          sync.RWMutex
	items       map[string]*item
	maxKeys     int
	defaultTTL  time.Duration
	stopCleanup chan struct{}
	closeOnce   sync.Once
	keyPrefix   string
}

// newMemoryCache creates a new memory cache instance
func newMemoryCache(cfg Config) *MemoryCache {
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}

	mc := &MemoryCache{
		items:       make(map[string]*item),
		maxKeys:     cfg.MaxKeys,
		defaultTTL:  cfg.DefaultTTL,
		stopCleanup: make(chan struct{}),
		keyPrefix:   cfg.KeyPrefix,
	}

	go mc.cleanupExpired(cleanup)

	return mc
}

// Get retrieves a value by key
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	it, exists := mc.items[mc.keyPrefix+key]
	if !exists {
		return nil, ErrKeyNotFound
	}

	// Check expiration
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return nil, ErrKeyNotFound
	}

	return it.value, nil
}

// Set stores a value with optional TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	fullKey := mc.keyPrefix + key

	if mc.maxKeys > 0 && len(mc.items) >= mc.maxKeys {
		if _, exists := mc.items[fullKey]; !exists {
			return ErrMaxKeysReached
		}
	}

	if ttl == 0 {
		ttl = mc.defaultTTL
	}

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	mc.items[fullKey] = &item{
		value:      value,
		expiration: expiration,
	}

	return nil
}

// Delete removes a key
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.items, mc.keyPrefix+key)
	return nil
}

// Exists checks if a key exists
func (mc *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	it, exists := mc.items[mc.keyPrefix+key]
	if !exists {
		return false, nil
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return false, nil
	}
	return true, nil
}

// Clear removes all keys under this cache's prefix
func (mc *MemoryCache) Clear(ctx context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.keyPrefix != "" {
		for key := range mc.items {
			if len(key) >= len(mc.keyPrefix) && key[:len(mc.keyPrefix)] == mc.keyPrefix {
				delete(mc.items, key)
			}
		}
	} else {
		mc.items = make(map[string]*item)
	}

	return nil
}

// Close stops the cleanup goroutine
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		close(mc.stopCleanup)
	})
	return nil
}

// Ping checks if cache is operational
func (mc *MemoryCache) Ping(ctx context.Context) error {
	// Memory cache is always available
	return nil
}

// cleanupExpired removes expired items periodically
func (mc *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stopCleanup:
			return
		}
	}
}

func (mc *MemoryCache) removeExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now().UnixNano()
	for key, it := range mc.items {
		if it.expiration > 0 && now > it.expiration {
			delete(mc.items, key)
		}
	}
}
