package krypto

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// GenerateSecureToken generates a secure random token of the specified byte
// length, hex encoded. Used for OAuth state parameters.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken64 returns a 64-character token built from two UUIDs.
// Unlike GenerateSecureToken it cannot fail.
func GenerateToken64() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}
