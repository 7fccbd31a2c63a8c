package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/esipilot/esikit/cache"
)

const maxErrorBody = 4096

// Service is a read-through caching proxy in front of the upstream game
// API. Responses are cached per endpoint, keyed by the credential that
// fetched them, and revalidated with If-None-Match once they go stale.
// Cache failures are tolerated: a broken cache degrades the gateway to a
// plain proxy, it never takes it down.
type Service struct {
	config  Config
	cache   cache.Cache
	tokens  TokenSource
	client  HTTPClient
	limiter RateLimiter
	logger  *slog.Logger
}

// New creates a gateway Service. The token source may be nil when only
// public endpoints are used.
func New(cfg Config, c cache.Cache, tokens TokenSource, logger *slog.Logger) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	registerMetrics()

	return &Service{
		config:  cfg,
		cache:   c,
		tokens:  tokens,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: NewTokenBucketLimiter(cfg.RateLimit, cfg.RateInterval, cfg.RateBurst),
		logger:  logger,
	}, nil
}

// SetHTTPClient allows using a custom HTTP client
func (s *Service) SetHTTPClient(client HTTPClient) {
	s.client = client
}

// SetRateLimiter allows using a custom rate limiter
func (s *Service) SetRateLimiter(limiter RateLimiter) {
	s.limiter = limiter
}

// Fetch retrieves a public endpoint. When out is non-nil the body is also
// unmarshaled into it. Cached responses are shared by all callers.
func (s *Service) Fetch(ctx context.Context, path string, out interface{}) (*Result, error) {
	return s.fetch(ctx, "public", "public:"+path, "", path, out)
}

// FetchCharacter retrieves an authenticated endpoint on behalf of one
// character. The cache entry is keyed to the character, so one pilot's
// data never serves another's request.
func (s *Service) FetchCharacter(ctx context.Context, characterID int64, path string, out interface{}) (*Result, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("no token source configured")
	}
	token, err := s.tokens.AccessToken(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token for character %d: %w", characterID, err)
	}
	partition := strconv.FormatInt(characterID, 10)
	return s.fetch(ctx, partition, partition+":"+path, token, path, out)
}

// fetch runs the shared read-through algorithm for one endpoint.
func (s *Service) fetch(ctx context.Context, partition, key, token, path string, out interface{}) (*Result, error) {
	now := time.Now()

	env := s.readCache(ctx, key)
	if env != nil && env.fresh(now) {
		requestsTotal.WithLabelValues(outcomeCacheHit).Inc()
		return result(env, true, out)
	}

	allowed, err := s.limiter.Allow(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(outcomeRateLimited).Inc()
		// A stale entry beats an error when the budget is exhausted
		if env != nil {
			return result(env, true, out)
		}
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, path)
	}

	req, err := s.newRequest(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}
	if env != nil && env.ETag != "" {
		req.Header.Set("If-None-Match", env.ETag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeUpstreamErr).Inc()
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		requestsTotal.WithLabelValues(outcomeRevalidated).Inc()
		if env == nil {
			// 304 with nothing to revalidate against should not happen;
			// treat it as an upstream fault rather than inventing a body
			return nil, &UpstreamError{Path: path, StatusCode: resp.StatusCode, Body: "304 without a cached entry"}
		}
		refreshed := &envelope{
			Body:      env.Body,
			ETag:      etagFrom(resp.Header, env.ETag),
			ExpiresAt: s.expiryFrom(resp.Header, now),
		}
		s.writeCache(ctx, key, refreshed, now)
		return result(refreshed, true, out)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		requestsTotal.WithLabelValues(outcomeFetched).Inc()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read upstream response: %w", err)
		}
		stored := &envelope{
			Body:      body,
			ETag:      etagFrom(resp.Header, ""),
			ExpiresAt: s.expiryFrom(resp.Header, now),
		}
		s.writeCache(ctx, key, stored, now)
		return result(stored, false, out)

	default:
		requestsTotal.WithLabelValues(outcomeUpstreamErr).Inc()
		return nil, upstreamError(path, resp)
	}
}

func result(env *envelope, cached bool, out interface{}) (*Result, error) {
	if err := unmarshalBody(env.Body, out); err != nil {
		return nil, err
	}
	return &Result{
		Data:      env.Body,
		Cached:    cached,
		ExpiresAt: env.ExpiresAt,
		ETag:      env.ETag,
	}, nil
}

// Post sends a JSON payload to an upstream endpoint and unmarshals the
// response into out. POST responses are not cached.
func (s *Service) Post(ctx context.Context, path string, payload, out interface{}) error {
	allowed, err := s.limiter.Allow(ctx, "public")
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(outcomeRateLimited).Inc()
		return fmt.Errorf("%w: %s", ErrRateLimited, path)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request payload: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), "")
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeUpstreamErr).Inc()
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		requestsTotal.WithLabelValues(outcomeUpstreamErr).Inc()
		return upstreamError(path, resp)
	}
	requestsTotal.WithLabelValues(outcomeFetched).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstream response: %w", err)
	}
	return unmarshalBody(raw, out)
}

// Invalidate drops the cached public entry for a path.
func (s *Service) Invalidate(ctx context.Context, path string) error {
	return s.cache.Delete(ctx, "public:"+path)
}

func (s *Service) newRequest(ctx context.Context, method, path string, body io.Reader, token string) (*http.Request, error) {
	url := s.config.BaseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// readCache loads the stored envelope for a key. Misses and substrate
// failures both come back nil; only the latter is logged and counted.
func (s *Service) readCache(ctx context.Context, key string) *envelope {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			cacheErrorsTotal.WithLabelValues("get").Inc()
			s.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("cache entry corrupt, discarding", "key", key, "error", err)
		return nil
	}
	return &env
}

// writeCache stores an envelope with a physical TTL that outlives the
// logical expiry by the stale grace, keeping the body around for
// revalidation. Write failures are logged, never surfaced.
func (s *Service) writeCache(ctx context.Context, key string, env *envelope, now time.Time) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to encode cache entry", "key", key, "error", err)
		return
	}

	ttl := env.ExpiresAt.Sub(now) + s.config.StaleGrace
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		cacheErrorsTotal.WithLabelValues("set").Inc()
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// expiryFrom derives the logical expiry from upstream headers, preferring
// Expires, then Cache-Control max-age, then the configured default.
func (s *Service) expiryFrom(h http.Header, now time.Time) time.Time {
	if exp := h.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			return t
		}
	}
	if cc := h.Get("Cache-Control"); cc != "" {
		for _, part := range strings.Split(cc, ",") {
			part = strings.TrimSpace(part)
			if v, ok := strings.CutPrefix(part, "max-age="); ok {
				if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}
	return now.Add(s.config.DefaultTTL)
}

func etagFrom(h http.Header, fallback string) string {
	if etag := h.Get("ETag"); etag != "" {
		return etag
	}
	return fallback
}

func upstreamError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &UpstreamError{
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func unmarshalBody(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}
