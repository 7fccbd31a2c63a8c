package krypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for key derivation
const (
	deriveMemory      = 64 * 1024
	deriveIterations  = 3
	deriveParallelism = 4
)

// GenerateKey generates a random 32-byte key, base64 encoded for storage.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// LoadKey decodes a base64 encoded key and validates its size.
func LoadKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	return key, nil
}

// DeriveKey derives a 32-byte key from a passphrase using Argon2id.
// The salt must be stable per deployment: the same passphrase and salt
// always produce the same key, so previously stored ciphertext stays
// readable across restarts.
func DeriveKey(passphrase, salt string) []byte {
	return argon2.IDKey([]byte(passphrase), []byte(salt), deriveIterations, deriveMemory, deriveParallelism, KeySize)
}
