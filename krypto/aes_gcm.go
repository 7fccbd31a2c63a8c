package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// Package-level errors
var (
	// ErrInvalidKey indicates a key of the wrong size or encoding
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrDecrypt indicates an authentication or decryption failure. It is
	// fatal: stored ciphertext is either corrupted or was produced with a
	// different key. It must never be treated as a cache miss.
	ErrDecrypt = errors.New("decryption failed")
)

// TokenCipher encrypts and decrypts token material for storage at rest.
//
// Each encryption draws a fresh random nonce. The nonce is prepended to the
// ciphertext and the whole blob is base64 encoded, so a stored value is
// self-contained: base64(nonce || ciphertext || tag).
type TokenCipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(blob string) (string, error)
}

// aesGCMCipher implements TokenCipher using AES-256-GCM
type aesGCMCipher struct {
	gcm cipher.AEAD
}

// NewTokenCipher creates a TokenCipher from a 32-byte key.
// Use LoadKey or DeriveKey to obtain the key material.
func NewTokenCipher(key []byte) (TokenCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &aesGCMCipher{gcm: gcm}, nil
}

// EncryptString encrypts a string and returns the base64 encoded blob.
func (c *aesGCMCipher) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal with the nonce prepended so the blob decrypts standalone
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString decrypts a base64 encoded blob produced by EncryptString.
// Tampered data and wrong-key decryptions both return ErrDecrypt.
func (c *aesGCMCipher) DecryptString(blob string) (string, error) {
	if blob == "" {
		return "", fmt.Errorf("%w: empty blob", ErrDecrypt)
	}

	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding: %v", ErrDecrypt, err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("%w: blob too short", ErrDecrypt)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plaintext), nil
}
