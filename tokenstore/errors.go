package tokenstore

import (
	"errors"
	"fmt"
)

// Package-level errors
var (
	// ErrNotFound indicates no credential exists for the character
	ErrNotFound = errors.New("credential not found")

	// ErrRefreshFailed indicates a token refresh did not succeed. It is a
	// soft failure: the stored credential is left untouched and the next
	// access attempt will try again.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// RefreshError reports a failed refresh for one character. It matches
// ErrRefreshFailed with errors.Is and exposes the underlying cause through
// Unwrap.
type RefreshError struct {
	CharacterID int64
	Err         error
}

// Error implements the error interface
func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed for character %d: %v", e.CharacterID, e.Err)
}

// Unwrap returns the underlying error
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Is matches ErrRefreshFailed
func (e *RefreshError) Is(target error) bool {
	return target == ErrRefreshFailed
}
