package entities

import "context"

// Entity is one resolved game object: a character, corporation, alliance,
// station, solar system or similar named thing.
type Entity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Poster is the slice of the gateway the resolver depends on.
// *gateway.Service satisfies it.
type Poster interface {
	Post(ctx context.Context, path string, payload, out interface{}) error
}
