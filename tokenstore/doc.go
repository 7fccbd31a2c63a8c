// Package tokenstore persists encrypted OAuth credentials for game
// characters and is the facade other services use to obtain usable access
// tokens.
//
// Each character has exactly one credential row. Token material is
// encrypted at rest with a krypto.TokenCipher and decrypted only
// transiently for outbound calls. Read-modify-write sequences are
// serialized per character so concurrent callers never trigger duplicate
// refreshes for the same identity.
//
// Basic usage:
//
//	flow, _ := sso.New(ssoCfg)
//	cipher, _ := krypto.NewTokenCipher(key)
//	store, err := tokenstore.New(gormDB, flow, cipher, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	token, err := store.AccessToken(ctx, characterID)
package tokenstore
