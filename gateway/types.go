package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// TokenSource supplies a usable access token for a character.
// *tokenstore.Service satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context, characterID int64) (string, error)
}

// HTTPClient allows mocking the HTTP client in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is one gateway response: the raw body plus the cache metadata it
// was served with. Cached reports whether the body came out of the cache,
// either as a fresh hit or through a 304 revalidation.
type Result struct {
	Data      json.RawMessage `json:"data"`
	Cached    bool            `json:"cached"`
	ExpiresAt time.Time       `json:"expires_at"`
	ETag      string          `json:"etag,omitempty"`
}

// Decode unmarshals the body into out.
func (r *Result) Decode(out interface{}) error {
	return unmarshalBody(r.Data, out)
}

// envelope is the cached form of one upstream response. Entries are kept
// physically past ExpiresAt so their ETag and body can serve a
// revalidation round trip.
type envelope struct {
	Body      json.RawMessage `json:"body"`
	ETag      string          `json:"etag,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e *envelope) fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
