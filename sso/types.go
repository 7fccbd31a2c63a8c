package sso

import (
	"net/http"
	"strings"
	"time"
)

// Token represents an access/refresh token pair issued by the provider
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// IsExpired checks if the token is expired
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt)
}

// Scopes returns the granted scopes as a slice
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// CharacterInfo identifies the character a token was issued for.
//
// OwnerHash is an opaque string binding the character to its authorizing
// account. It changes when the character is transferred to a different
// account; it is a transfer-detection signal, never an identifier.
type CharacterInfo struct {
	CharacterID   int64    `json:"character_id"`
	CharacterName string   `json:"character_name"`
	OwnerHash     string   `json:"owner_hash"`
	Scopes        []string `json:"scopes"`
}

// HTTPClient interface for mocking in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
