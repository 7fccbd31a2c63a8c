package gateway_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esipilot/esikit/cache"
	"github.com/esipilot/esikit/gateway"
)

type staticTokens struct {
	token string
	err   error
	calls int64
}

func (s *staticTokens) AccessToken(ctx context.Context, characterID int64) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.token, s.err
}

// failingCache breaks every operation so cache tolerance can be observed.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("substrate down")
}

func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("substrate down")
}

func (failingCache) Delete(ctx context.Context, key string) error {
	return errors.New("substrate down")
}

func (failingCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("substrate down")
}

func (failingCache) Clear(ctx context.Context) error { return errors.New("substrate down") }
func (failingCache) Close() error                    { return nil }
func (failingCache) Ping(ctx context.Context) error  { return errors.New("substrate down") }

func newMemCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func newGateway(t *testing.T, baseURL string, c cache.Cache, tokens gateway.TokenSource) *gateway.Service {
	t.Helper()
	gw, err := gateway.New(gateway.Config{
		BaseURL:      baseURL,
		DefaultTTL:   5 * time.Minute,
		StaleGrace:   24 * time.Hour,
		RateLimit:    1000,
		RateInterval: time.Second,
		RateBurst:    1000,
	}, c, tokens, nil)
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	return gw
}

func TestFetchCachesUntilExpiry(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=300")
		fmt.Fprint(w, `{"name":"Jita"}`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), nil)
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	for i := 0; i < 3; i++ {
		res, err := gw.Fetch(ctx, "/universe/systems/30000142/", &out)
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if out.Name != "Jita" {
			t.Fatalf("Fetch %d: unexpected body %+v", i, out)
		}
		if wantCached := i > 0; res.Cached != wantCached {
			t.Errorf("Fetch %d: cached=%v, want %v", i, res.Cached, wantCached)
		}
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("expected a single upstream hit, got %d", got)
	}
}

func TestFetchRevalidatesWithETag(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&hits, 1)
		if n == 1 {
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("Cache-Control", "max-age=0")
			fmt.Fprint(w, `{"value":42}`)
			return
		}
		if r.Header.Get("If-None-Match") != `"v1"` {
			t.Errorf("revalidation missing If-None-Match, got %q", r.Header.Get("If-None-Match"))
		}
		w.Header().Set("Cache-Control", "max-age=300")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), nil)
	ctx := context.Background()

	var out struct {
		Value int `json:"value"`
	}
	if _, err := gw.Fetch(ctx, "/markets/prices/", &out); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}

	// Entry expired immediately, the second fetch must revalidate and
	// keep serving the original body.
	out.Value = 0
	res, err := gw.Fetch(ctx, "/markets/prices/", &out)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if out.Value != 42 {
		t.Errorf("304 should reuse the cached body, got %+v", out)
	}
	if !res.Cached {
		t.Error("revalidated response should report cached")
	}
	if res.ETag != `"v1"` {
		t.Errorf("expected etag to survive revalidation, got %q", res.ETag)
	}

	// The 304 extended the expiry, so a third fetch is a pure cache hit.
	if _, err := gw.Fetch(ctx, "/markets/prices/", &out); err != nil {
		t.Fatalf("third Fetch: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("expected 2 upstream hits, got %d", got)
	}
}

func TestExpiresHeaderWinsOverMaxAge(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "max-age=0")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), nil)
	ctx := context.Background()

	if _, err := gw.Fetch(ctx, "/status/", nil); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	res, err := gw.Fetch(ctx, "/status/", nil)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !res.Cached {
		t.Error("Expires should take precedence over max-age")
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("expected a single upstream hit, got %d", got)
	}
}

func TestFetchCharacterPartitionsCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Cache-Control", "max-age=300")
		fmt.Fprint(w, `{"balance":100.5}`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), &staticTokens{token: "tok"})
	ctx := context.Background()

	var out struct {
		Balance float64 `json:"balance"`
	}
	if _, err := gw.FetchCharacter(ctx, 1001, "/wallet/", &out); err != nil {
		t.Fatalf("FetchCharacter 1001: %v", err)
	}
	if _, err := gw.FetchCharacter(ctx, 1001, "/wallet/", &out); err != nil {
		t.Fatalf("FetchCharacter 1001 again: %v", err)
	}
	// A different character must not see the first one's cached entry
	if _, err := gw.FetchCharacter(ctx, 1002, "/wallet/", &out); err != nil {
		t.Fatalf("FetchCharacter 1002: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("expected one upstream hit per character, got %d", got)
	}
}

func TestFetchUpstreamErrorNotCached(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&hits, 1)
		if n == 1 {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "max-age=300")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), nil)
	ctx := context.Background()

	var out struct {
		OK bool `json:"ok"`
	}
	_, err := gw.Fetch(ctx, "/status/", &out)
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var upErr *gateway.UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected UpstreamError with status 500, got %v", err)
	}

	// The failure was not cached: the next call reaches upstream and
	// succeeds.
	res, err := gw.Fetch(ctx, "/status/", &out)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !out.OK || res.Cached {
		t.Errorf("expected a fresh recovered response, got %+v cached=%v", out, res.Cached)
	}
}

func TestFetchToleratesBrokenCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, failingCache{}, nil)
	ctx := context.Background()

	var out struct {
		OK bool `json:"ok"`
	}
	for i := 0; i < 2; i++ {
		if _, err := gw.Fetch(ctx, "/status/", &out); err != nil {
			t.Fatalf("Fetch %d with broken cache: %v", i, err)
		}
		if !out.OK {
			t.Fatalf("Fetch %d: unexpected body %+v", i, out)
		}
	}
	// Every call goes upstream, the gateway degrades to a plain proxy
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("expected 2 upstream hits, got %d", got)
	}
}

func TestFetchCharacterTokenFailure(t *testing.T) {
	gw := newGateway(t, "http://127.0.0.1:1", newMemCache(t), &staticTokens{err: errors.New("refresh failed")})

	_, err := gw.FetchCharacter(context.Background(), 1001, "/wallet/", nil)
	if err == nil {
		t.Fatal("expected token failure to surface")
	}
}

func TestPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing json content type")
		}
		fmt.Fprint(w, `[{"id":95465499,"name":"CCP Bartender","category":"character"}]`)
	}))
	defer srv.Close()

	gw := newGateway(t, srv.URL, newMemCache(t), nil)

	var out []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := gw.Post(context.Background(), "/universe/ids/", []string{"CCP Bartender"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(out) != 1 || out[0].ID != 95465499 {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestRateLimiterRejects(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	gw, err := gateway.New(gateway.Config{
		BaseURL:      srv.URL,
		RateLimit:    1,
		RateInterval: time.Hour,
		RateBurst:    1,
	}, newMemCache(t), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := gw.Fetch(ctx, "/a/", nil); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	// Different path, no cached entry to fall back on
	_, err = gw.Fetch(ctx, "/b/", nil)
	if !errors.Is(err, gateway.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("expected a single upstream hit, got %d", got)
	}
}

func TestTokenBucketRefills(t *testing.T) {
	limiter := gateway.NewTokenBucketLimiter(10, 100*time.Millisecond, 1)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("first Allow: ok=%v err=%v", ok, err)
	}
	ok, _ = limiter.Allow(ctx, "k")
	if ok {
		t.Fatal("bucket should be empty")
	}

	status, err := limiter.Status(ctx, "k")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.RetryAfter <= 0 {
		t.Errorf("expected a positive RetryAfter, got %v", status.RetryAfter)
	}

	time.Sleep(50 * time.Millisecond)
	ok, _ = limiter.Allow(ctx, "k")
	if !ok {
		t.Error("bucket should have refilled")
	}
}
