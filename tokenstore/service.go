package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/esipilot/esikit/krypto"
	"github.com/esipilot/esikit/sso"
)

// Service persists one encrypted credential per character and is the
// surface other services talk to: it drives the authorization callback,
// hands out decrypted access tokens (refreshing them when needed), and
// answers metadata queries.
type Service struct {
	db     *gorm.DB
	flow   Flow
	cipher krypto.TokenCipher
	logger *slog.Logger
	locks  *characterLocks
}

// New creates a Service and migrates the credential table.
func New(db *gorm.DB, flow Flow, cipher krypto.TokenCipher, logger *slog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm.DB is required")
	}
	if flow == nil {
		return nil, fmt.Errorf("sso flow is required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("token cipher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credential table: %w", err)
	}

	return &Service{
		db:     db,
		flow:   flow,
		cipher: cipher,
		logger: logger,
		locks:  newCharacterLocks(),
	}, nil
}

// AuthorizeURL builds the provider authorization URL for the requested
// scopes. A random state is generated when none is supplied.
func (s *Service) AuthorizeURL(scopes []string, state string) (string, string, error) {
	return s.flow.AuthorizeURL(scopes, state)
}

// HandleCallback completes an interactive login: it exchanges the
// authorization code, verifies the character behind the issued token and
// persists the credential. The result is tagged; failures carry a Reason
// and are never retried, so the user-facing caller can react immediately.
func (s *Service) HandleCallback(ctx context.Context, code string) *CallbackResult {
	token, err := s.flow.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("authorization code exchange failed", "error", err)
		return &CallbackResult{Success: false, Reason: fmt.Sprintf("code exchange failed: %v", err)}
	}

	info, err := s.flow.Verify(ctx, token.AccessToken)
	if err != nil {
		s.logger.Warn("token verification failed", "error", err)
		return &CallbackResult{Success: false, Reason: fmt.Sprintf("token verification failed: %v", err)}
	}

	if err := s.Upsert(ctx, info, token); err != nil {
		s.logger.Error("failed to persist credential", "character_id", info.CharacterID, "error", err)
		return &CallbackResult{Success: false, Reason: fmt.Sprintf("failed to store credential: %v", err)}
	}

	return &CallbackResult{
		Success:       true,
		CharacterID:   info.CharacterID,
		CharacterName: info.CharacterName,
		OwnerHash:     info.OwnerHash,
		Scopes:        info.Scopes,
	}
}

// Upsert encrypts the token pair and writes the character's credential,
// inserting if absent and updating in place otherwise. A character has
// exactly one row; repeated calls with the same character are idempotent.
func (s *Service) Upsert(ctx context.Context, info *sso.CharacterInfo, token *sso.Token) error {
	unlock := s.locks.lock(info.CharacterID)
	defer unlock.Unlock()

	return s.writeCredential(ctx, info, token)
}

// writeCredential does the encrypt-and-save. Callers hold the character lock.
func (s *Service) writeCredential(ctx context.Context, info *sso.CharacterInfo, token *sso.Token) error {
	accessCipher, err := s.cipher.EncryptString(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	refreshCipher := ""
	if token.RefreshToken != "" {
		refreshCipher, err = s.cipher.EncryptString(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	cred := Credential{
		CharacterID:        info.CharacterID,
		CharacterName:      info.CharacterName,
		OwnerHash:          info.OwnerHash,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		Scopes:             strings.Join(info.Scopes, " "),
		ExpiresAt:          token.ExpiresAt,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "character_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"character_name", "owner_hash", "access_token_cipher",
			"refresh_token_cipher", "scopes", "expires_at", "updated_at",
		}),
	}).Create(&cred).Error
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// TokenInfo returns credential metadata for one character. It never
// decrypts token material. Returns ErrNotFound when the character has no
// credential.
func (s *Service) TokenInfo(ctx context.Context, characterID int64) (*TokenInfo, error) {
	cred, err := s.load(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return infoFromCredential(cred), nil
}

// AccessToken returns the decrypted access token for a character. When the
// stored token has expired, exactly one refresh is attempted through the
// SSO before returning.
//
// A credential row existing does not guarantee a token: if the refresh
// fails the error matches ErrRefreshFailed, the stored credential is left
// untouched, and the caller should treat the identity as needing a new
// interactive login if failures persist.
func (s *Service) AccessToken(ctx context.Context, characterID int64) (string, error) {
	unlock := s.locks.lock(characterID)
	defer unlock.Unlock()

	cred, err := s.load(ctx, characterID)
	if err != nil {
		return "", err
	}

	if time.Now().Before(cred.ExpiresAt) {
		access, err := s.cipher.DecryptString(cred.AccessTokenCipher)
		if err != nil {
			// Fatal: wrong key or corrupted row, never degrade silently
			return "", fmt.Errorf("character %d: %w", characterID, err)
		}
		return access, nil
	}

	token, err := s.refreshCredential(ctx, cred)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// Refresh renews a character's token pair immediately, regardless of
// expiry. It reports false with an error matching ErrRefreshFailed on soft
// failure; the stored credential is left untouched so the next attempt can
// try again.
func (s *Service) Refresh(ctx context.Context, characterID int64) (bool, error) {
	unlock := s.locks.lock(characterID)
	defer unlock.Unlock()

	cred, err := s.load(ctx, characterID)
	if err != nil {
		return false, err
	}

	if _, err := s.refreshCredential(ctx, cred); err != nil {
		return false, err
	}

	return true, nil
}

// refreshCredential performs one refresh attempt and rotates the stored
// pair on success. Callers hold the character lock.
func (s *Service) refreshCredential(ctx context.Context, cred *Credential) (*sso.Token, error) {
	if cred.RefreshTokenCipher == "" {
		return nil, &RefreshError{CharacterID: cred.CharacterID, Err: sso.ErrNoRefreshToken}
	}

	refreshToken, err := s.cipher.DecryptString(cred.RefreshTokenCipher)
	if err != nil {
		// Fatal crypto failure, not a soft refresh failure
		return nil, fmt.Errorf("character %d: %w", cred.CharacterID, err)
	}

	token, err := s.flow.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, &RefreshError{CharacterID: cred.CharacterID, Err: err}
	}

	info := &sso.CharacterInfo{
		CharacterID:   cred.CharacterID,
		CharacterName: cred.CharacterName,
		OwnerHash:     cred.OwnerHash,
		Scopes:        strings.Fields(cred.Scopes),
	}
	if err := s.writeCredential(ctx, info, token); err != nil {
		return nil, fmt.Errorf("failed to rotate credential for character %d: %w", cred.CharacterID, err)
	}

	return token, nil
}

// Revoke hard-deletes a character's credential and reports whether one
// existed. Cached API responses keyed to the character are not purged;
// they expire naturally.
func (s *Service) Revoke(ctx context.Context, characterID int64) (bool, error) {
	unlock := s.locks.lock(characterID)
	defer unlock.Unlock()

	res := s.db.WithContext(ctx).Delete(&Credential{}, "character_id = ?", characterID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete credential: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns metadata for every stored credential.
func (s *Service) List(ctx context.Context) ([]TokenInfo, error) {
	var creds []Credential
	if err := s.db.WithContext(ctx).Order("character_name").Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	infos := make([]TokenInfo, 0, len(creds))
	for i := range creds {
		infos = append(infos, *infoFromCredential(&creds[i]))
	}
	return infos, nil
}

// ExpiringWithin returns metadata for credentials whose tokens expire
// between now and now+window. The refresher uses this as its work queue.
func (s *Service) ExpiringWithin(ctx context.Context, window time.Duration) ([]TokenInfo, error) {
	now := time.Now()
	var creds []Credential
	err := s.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at <= ?", now, now.Add(window)).
		Order("expires_at").
		Find(&creds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring credentials: %w", err)
	}

	infos := make([]TokenInfo, 0, len(creds))
	for i := range creds {
		infos = append(infos, *infoFromCredential(&creds[i]))
	}
	return infos, nil
}

func (s *Service) load(ctx context.Context, characterID int64) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).First(&cred, "character_id = ?", characterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}
