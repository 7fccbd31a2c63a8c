// Package cache provides the keyed byte store with TTL support that backs
// esikit's response and entity caches.
//
// Two drivers are available: an in-process memory cache (the default) and
// Redis. Both implement the Cache interface and return ErrKeyNotFound for
// absent or expired keys, so callers can distinguish a miss from a substrate
// failure with errors.Is.
//
//	c, err := cache.New(cache.Config{Driver: "memory"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.Set(ctx, "key", []byte("value"), 5*time.Minute)
//	val, err := c.Get(ctx, "key")
//
// Configuration can also come from the environment via NewFromEnv; see
// Config for the ESIKIT_CACHE_* variables.
package cache
