// Package entities resolves game entity names to IDs and IDs back to
// names through the upstream bulk resolution endpoints.
//
// Every resolved mapping is cached under both its ID and its lowercased
// name, so repeat lookups in either direction are served locally. A batch
// lookup only sends the cache misses upstream, and when the upstream is
// unreachable the cached subset is returned rather than an error.
package entities
