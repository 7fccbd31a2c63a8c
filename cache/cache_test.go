package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/esipilot/esikit/cache"
)

func newMemory(t *testing.T, cfg cache.Config) cache.Cache {
	t.Helper()
	cfg.Driver = "memory"
	c, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemorySetGet(t *testing.T) {
	c := newMemory(t, cache.Config{})
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	exists, err := c.Exists(ctx, "k")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v; want true, nil", exists, err)
	}
}

func TestMemoryMiss(t *testing.T) {
	c := newMemory(t, cache.Config{})

	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Get on absent key: got %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := newMemory(t, cache.Config{})
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Get after expiry: got %v, want ErrKeyNotFound", err)
	}
	exists, _ := c.Exists(ctx, "k")
	if exists {
		t.Error("Exists reported true after expiry")
	}
}

func TestMemoryDelete(t *testing.T) {
	c := newMemory(t, cache.Config{})
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Get after delete: got %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryKeyPrefixIsolation(t *testing.T) {
	a := newMemory(t, cache.Config{KeyPrefix: "a:"})
	b := newMemory(t, cache.Config{KeyPrefix: "b:"})
	ctx := context.Background()

	a.Set(ctx, "k", []byte("va"), 0)
	b.Set(ctx, "k", []byte("vb"), 0)

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := a.Get(ctx, "k"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("prefix a survived Clear: %v", err)
	}
}

func TestMemoryMaxKeys(t *testing.T) {
	c := newMemory(t, cache.Config{MaxKeys: 1})
	ctx := context.Background()

	if err := c.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "b", []byte("2"), 0); !errors.Is(err, cache.ErrMaxKeysReached) {
		t.Errorf("Set over limit: got %v, want ErrMaxKeysReached", err)
	}
	// Overwriting an existing key is still allowed
	if err := c.Set(ctx, "a", []byte("3"), 0); err != nil {
		t.Errorf("overwrite at limit failed: %v", err)
	}
}

func TestInvalidDriver(t *testing.T) {
	_, err := cache.New(cache.Config{Driver: "bogus"})
	if !errors.Is(err, cache.ErrInvalidDriver) {
		t.Errorf("got %v, want ErrInvalidDriver", err)
	}
}
