package sso

import (
	"errors"
	"fmt"
)

// Package-level errors
var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid sso configuration")

	// ErrExchangeFailed indicates the provider rejected a code exchange
	// or token refresh
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrVerifyFailed indicates the provider rejected a token verification
	ErrVerifyFailed = errors.New("token verification failed")

	// ErrNoRefreshToken indicates the credential carries no refresh token
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// ExchangeError carries the provider's response to a failed exchange or
// refresh. It is surfaced to the interactive caller as-is and is never
// retried by the client; background retry cadence belongs to the refresher.
type ExchangeError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match with errors.Is(err, ErrExchangeFailed)
func (e *ExchangeError) Unwrap() error {
	return ErrExchangeFailed
}
