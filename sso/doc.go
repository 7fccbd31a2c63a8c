// Package sso drives the authorization-code OAuth flow against the game's
// single sign-on service.
//
// The client covers the three provider interactions: building the browser
// authorization URL, exchanging an authorization code for a token pair, and
// exchanging a refresh token for a fresh pair. Token endpoint calls carry
// the client credentials in a Basic auth header. Verify resolves the
// character behind an access token, decoding JWT claims locally when
// possible and falling back to the provider's verify endpoint.
//
//	client, err := sso.New(sso.Config{
//	    ClientID:     "...",
//	    ClientSecret: "...",
//	    RedirectURL:  "https://example.com/callback",
//	})
//
//	authURL, state, _ := client.AuthorizeURL([]string{"esi-wallet.read_character_wallet.v1"}, "")
//	// ... user authorizes in the browser, provider redirects back with a code ...
//	token, err := client.Exchange(ctx, code)
//
// The client never retries: a failed interactive exchange must be reported
// to the user immediately, and background retry cadence for refreshes is
// owned by the refresher package.
package sso
