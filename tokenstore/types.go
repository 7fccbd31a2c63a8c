package tokenstore

import (
	"context"
	"strings"
	"time"

	"github.com/esipilot/esikit/sso"
)

// Credential is the persisted token pair for one character. Token material
// is stored encrypted only; the plaintext exists transiently in memory for
// outbound calls.
type Credential struct {
	CharacterID        int64  `gorm:"primaryKey"`
	CharacterName      string `gorm:"index"`
	OwnerHash          string
	AccessTokenCipher  string
	RefreshTokenCipher string // empty when the flow issued no refresh token
	Scopes             string // space-joined, order preserved
	ExpiresAt          time.Time `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TokenInfo is credential metadata, safe to hand to collaborators.
// It never carries decrypted token material.
type TokenInfo struct {
	CharacterID   int64     `json:"character_id"`
	CharacterName string    `json:"character_name"`
	OwnerHash     string    `json:"owner_hash"`
	ExpiresAt     time.Time `json:"expires_at"`
	Scopes        []string  `json:"scopes"`
	Expired       bool      `json:"expired"`
}

func infoFromCredential(cred *Credential) *TokenInfo {
	return &TokenInfo{
		CharacterID:   cred.CharacterID,
		CharacterName: cred.CharacterName,
		OwnerHash:     cred.OwnerHash,
		ExpiresAt:     cred.ExpiresAt,
		Scopes:        strings.Fields(cred.Scopes),
		Expired:       time.Now().After(cred.ExpiresAt),
	}
}

// CallbackResult is the tagged outcome of an authorization callback.
// Callers must branch on Success; on failure Reason explains what went
// wrong in terms suitable for a user-facing caller.
type CallbackResult struct {
	Success       bool     `json:"success"`
	CharacterID   int64    `json:"character_id,omitempty"`
	CharacterName string   `json:"character_name,omitempty"`
	OwnerHash     string   `json:"owner_hash,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// Flow is the slice of the SSO client the store depends on.
// *sso.Client satisfies it.
type Flow interface {
	AuthorizeURL(scopes []string, state string) (string, string, error)
	Exchange(ctx context.Context, code string) (*sso.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*sso.Token, error)
	Verify(ctx context.Context, accessToken string) (*sso.CharacterInfo, error)
}
