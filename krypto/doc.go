// Package krypto provides the cryptographic primitives esikit needs to keep
// OAuth token material encrypted at rest.
//
// # Token Encryption
//
// TokenCipher performs AES-256-GCM authenticated encryption. Every call to
// EncryptString draws a fresh random nonce, prepends it to the ciphertext
// and base64 encodes the result, so the stored value is a single
// self-contained blob:
//
//	key, _ := krypto.LoadKey(os.Getenv("ESIKIT_ENCRYPTION_KEY"))
//	cipher, _ := krypto.NewTokenCipher(key)
//
//	blob, _ := cipher.EncryptString("access-token")
//	plain, err := cipher.DecryptString(blob)
//
// A failed decryption returns ErrDecrypt. This is a fatal condition (wrong
// key or tampered data) and is never silently degraded.
//
// # Key Material
//
// Keys are 32 bytes. GenerateKey produces a fresh random key, LoadKey
// decodes a base64 key from configuration, and DeriveKey derives one from a
// passphrase with Argon2id for deployments that prefer a human-manageable
// secret.
//
// # Tokens
//
// GenerateSecureToken produces hex-encoded random tokens, used for OAuth
// state parameters.
package krypto
