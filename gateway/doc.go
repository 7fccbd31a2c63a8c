// Package gateway is a read-through caching proxy for the upstream game
// API.
//
// Responses are cached in any cache.Cache, keyed per endpoint and per
// credential partition, and honored for the lifetime the upstream's
// Cache-Control or Expires header grants them. Stale entries are
// revalidated with If-None-Match; a 304 reuses the cached body and only
// extends its expiry. Upstream errors are never cached, and cache IO
// failures degrade the gateway to a plain proxy instead of failing the
// request.
//
// Basic usage:
//
//	gw, err := gateway.New(cfg, cacheService, tokenStore, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var wallet float64
//	res, err := gw.FetchCharacter(ctx, characterID, "/characters/2112625428/wallet/", &wallet)
package gateway
