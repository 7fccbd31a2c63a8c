package cache

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	// ErrKeyNotFound is returned by Get when a key is absent or expired.
	// Any other error from Get indicates a substrate failure; callers that
	// cache opportunistically should treat both as a miss but may want to
	// log the latter.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidDriver indicates an unknown cache driver name
	ErrInvalidDriver = errors.New("invalid cache driver")

	// ErrMaxKeysReached indicates the memory cache hit its key limit
	ErrMaxKeysReached = errors.New("max keys limit reached")
)

// Cache defines the interface for cache implementations
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with optional TTL (0 means the driver default)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all keys
	Clear(ctx context.Context) error

	// Close closes the cache connection
	Close() error

	// Ping checks if cache is reachable
	Ping(ctx context.Context) error
}
