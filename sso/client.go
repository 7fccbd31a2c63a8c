package sso

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/esipilot/esikit/krypto"
)

// Client drives the authorization-code OAuth flow against the game SSO.
//
// It is stateless: it builds authorization URLs and exchanges codes or
// refresh tokens for token pairs. Persisting the results is the token
// store's job.
type Client struct {
	config Config
	client HTTPClient
}

// New creates a new SSO client
func New(cfg Config) (*Client, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(client HTTPClient) {
	c.client = client
}

// AuthorizeURL returns the provider's authorization URL for the requested
// scopes along with the state parameter. A random state is generated when
// none is supplied. No side effects beyond randomness.
func (c *Client) AuthorizeURL(scopes []string, state string) (string, string, error) {
	if state == "" {
		var err error
		state, err = krypto.GenerateSecureToken(16)
		if err != nil {
			// crypto/rand should never fail; fall back to a UUID token
			state = krypto.GenerateToken64()
		}
	}

	if len(scopes) == 0 {
		scopes = strings.Fields(c.config.Scopes)
	}

	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.config.ClientID},
		"redirect_uri":  {c.config.RedirectURL},
		"state":         {state},
	}
	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}

	return c.config.AuthURL + "?" + params.Encode(), state, nil
}

// Exchange exchanges an authorization code for a token pair
// (grant_type=authorization_code). Non-2xx responses surface as an
// ExchangeError carrying the provider's body.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	data := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	return c.tokenRequest(ctx, data)
}

// Refresh exchanges a refresh token for a new token pair
// (grant_type=refresh_token). If the provider issues no new refresh token,
// the old one is carried into the returned Token so the caller can keep
// rotating with it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	token, err := c.tokenRequest(ctx, data)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return token, nil
}

// tokenRequest posts to the token endpoint with client credentials in a
// Basic auth header.
func (c *Client) tokenRequest(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.config.ClientID + ":" + c.config.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	var expiresAt time.Time
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		ExpiresAt:    expiresAt,
		Scope:        tokenResp.Scope,
	}, nil
}

// Verify resolves the character identity behind an access token.
//
// Modern SSO access tokens are JWTs carrying the character claims; those
// are decoded locally without a network call. Opaque tokens fall back to
// the provider's verify endpoint.
func (c *Client) Verify(ctx context.Context, accessToken string) (*CharacterInfo, error) {
	if info, err := characterFromJWT(accessToken); err == nil {
		return info, nil
	}

	if c.config.VerifyURL == "" {
		return nil, fmt.Errorf("%w: token is not a JWT and no verify URL is configured", ErrVerifyFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.VerifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrVerifyFailed, resp.StatusCode, string(body))
	}

	var verifyResp struct {
		CharacterID        int64  `json:"CharacterID"`
		CharacterName      string `json:"CharacterName"`
		CharacterOwnerHash string `json:"CharacterOwnerHash"`
		Scopes             string `json:"Scopes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, fmt.Errorf("%w: bad response: %v", ErrVerifyFailed, err)
	}

	return &CharacterInfo{
		CharacterID:   verifyResp.CharacterID,
		CharacterName: verifyResp.CharacterName,
		OwnerHash:     verifyResp.CharacterOwnerHash,
		Scopes:        strings.Fields(verifyResp.Scopes),
	}, nil
}

// Config returns the client configuration
func (c *Client) Config() Config {
	return c.config
}
