package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esipilot/esikit/cache"
	"github.com/esipilot/esikit/database"
	"github.com/esipilot/esikit/gateway"
	"github.com/esipilot/esikit/krypto"
	"github.com/esipilot/esikit/refresher"
	"github.com/esipilot/esikit/sso"
	"github.com/esipilot/esikit/tokenstore"
)

// TestProactiveRefreshFlow drives the whole pipeline: a credential about
// to expire is renewed by one refresher sweep, and the next authenticated
// fetch uses the renewed token without paying a second refresh.
func TestProactiveRefreshFlow(t *testing.T) {
	var refreshCalls int64

	// Scripted OAuth provider: only the token endpoint matters here
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad token request: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %q", got)
		}
		n := atomic.AddInt64(&refreshCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"renewed-%d","token_type":"Bearer","refresh_token":"rt-%d","expires_in":1200}`, n, n)
	}))
	defer provider.Close()

	// Upstream game API accepting only the renewed token
	var apiCalls int64
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&apiCalls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer renewed-1" {
			t.Errorf("expected renewed bearer token, got %q", got)
		}
		w.Header().Set("Cache-Control", "max-age=300")
		fmt.Fprint(w, `{"balance":12345.67}`)
	}))
	defer api.Close()

	flow, err := sso.New(sso.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://example.com/callback",
		AuthURL:      provider.URL + "/authorize",
		TokenURL:     provider.URL + "/token",
		VerifyURL:    provider.URL + "/verify",
	})
	if err != nil {
		t.Fatalf("failed to create sso client: %v", err)
	}

	db, err := database.Open(database.Config{
		Driver:       "sqlite",
		Database:     "file:refresh_flow?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cipher, err := krypto.NewTokenCipher([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	store, err := tokenstore.New(db, flow, cipher, nil)
	if err != nil {
		t.Fatalf("failed to create token store: %v", err)
	}

	ctx := context.Background()

	// A credential expiring inside the lookahead window
	info := &sso.CharacterInfo{
		CharacterID:   2112625428,
		CharacterName: "CCP Bartender",
		OwnerHash:     "owner-hash",
		Scopes:        []string{"esi-wallet.read_character_wallet.v1"},
	}
	token := &sso.Token{
		AccessToken:  "stale-access",
		TokenType:    "Bearer",
		RefreshToken: "stale-rt",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}
	if err := store.Upsert(ctx, info, token); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	sweeper, err := refresher.New(refresher.Config{Interval: 5 * time.Minute}, db, store, nil)
	if err != nil {
		t.Fatalf("failed to create refresher: %v", err)
	}
	if err := sweeper.RunNow(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if got := atomic.LoadInt64(&refreshCalls); got != 1 {
		t.Fatalf("expected one proactive refresh, got %d", got)
	}

	memCache, err := cache.New(cache.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer memCache.Close()

	gw, err := gateway.New(gateway.Config{BaseURL: api.URL}, memCache, store, nil)
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}

	var wallet struct {
		Balance float64 `json:"balance"`
	}
	res, err := gw.FetchCharacter(ctx, 2112625428, "/wallet/", &wallet)
	if err != nil {
		t.Fatalf("FetchCharacter: %v", err)
	}
	if wallet.Balance != 12345.67 {
		t.Errorf("unexpected wallet body: %+v", wallet)
	}
	if res.Cached {
		t.Error("first fetch should not be cached")
	}

	// The proactively renewed token served the fetch; no second refresh
	if got := atomic.LoadInt64(&refreshCalls); got != 1 {
		t.Errorf("fetch triggered an extra refresh: %d total", got)
	}
	if got := atomic.LoadInt64(&apiCalls); got != 1 {
		t.Errorf("expected one upstream API call, got %d", got)
	}
}
