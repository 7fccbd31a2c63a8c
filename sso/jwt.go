package sso

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// characterClaims mirrors the claims the SSO puts in its JWT access
// tokens. The subject is "CHARACTER:EVE:<id>"; scp is a string for a
// single scope and an array for several.
type characterClaims struct {
	Name  string      `json:"name"`
	Owner string      `json:"owner"`
	Scp   interface{} `json:"scp"`
	jwt.RegisteredClaims
}

// characterFromJWT decodes the character claims out of a JWT access token.
// The token signature is not checked here: the token was just issued to us
// over TLS by the provider itself, and gateway calls are authorized by the
// provider, not by us. An error means the token is not a usable JWT and the
// caller should fall back to endpoint verification.
func characterFromJWT(accessToken string) (*CharacterInfo, error) {
	parser := jwt.NewParser()

	var claims characterClaims
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("not a JWT: %w", err)
	}

	sub := claims.Subject
	const prefix = "CHARACTER:EVE:"
	if !strings.HasPrefix(sub, prefix) {
		return nil, fmt.Errorf("unexpected subject %q", sub)
	}

	characterID, err := strconv.ParseInt(strings.TrimPrefix(sub, prefix), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad character id in subject %q: %w", sub, err)
	}

	info := &CharacterInfo{
		CharacterID:   characterID,
		CharacterName: claims.Name,
		OwnerHash:     claims.Owner,
	}

	switch scp := claims.Scp.(type) {
	case string:
		info.Scopes = []string{scp}
	case []interface{}:
		for _, s := range scp {
			if str, ok := s.(string); ok {
				info.Scopes = append(info.Scopes, str)
			}
		}
	}

	return info, nil
}
