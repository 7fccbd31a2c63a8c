package gateway

import (
	"errors"
	"fmt"
)

// Package-level errors
var (
	// ErrUpstream indicates the upstream API answered with a non-success
	// status. Responses carrying it are never cached.
	ErrUpstream = errors.New("upstream request failed")

	// ErrRateLimited indicates the local rate limiter rejected the request
	// before it reached the upstream
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UpstreamError reports a non-success upstream response. It matches
// ErrUpstream with errors.Is and preserves the status code and a bounded
// copy of the response body for diagnostics.
type UpstreamError struct {
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// Unwrap returns the sentinel so errors.Is(err, ErrUpstream) matches
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}
