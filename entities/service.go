package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/esipilot/esikit/cache"
)

// Service resolves entity names to IDs and back through the upstream bulk
// endpoints, caching each mapping individually so repeat lookups never
// leave the cache.
type Service struct {
	config Config
	cache  cache.Cache
	poster Poster
	logger *slog.Logger
}

// New creates an entity resolver backed by a gateway and a cache.
func New(cfg Config, c cache.Cache, poster Poster, logger *slog.Logger) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if poster == nil {
		return nil, fmt.Errorf("poster is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: cfg.withDefaults(),
		cache:  c,
		poster: poster,
		logger: logger,
	}, nil
}

// idGroupCategories maps the grouped keys of the bulk name lookup response
// to the singular category names the id lookup uses, so both directions
// cache the same category strings.
var idGroupCategories = map[string]string{
	"agents":          "agent",
	"alliances":       "alliance",
	"characters":      "character",
	"constellations":  "constellation",
	"corporations":    "corporation",
	"factions":        "faction",
	"inventory_types": "inventory_type",
	"regions":         "region",
	"stations":        "station",
	"systems":         "solar_system",
}

// ResolveIDs maps names to entities, the name-to-id direction (it is named
// after the upstream endpoint it calls; ResolveNames is the id-to-name
// mirror). The result holds one key per input name that resolved; names
// the upstream does not know are simply absent. Only names missing from
// the cache go upstream, in a single batch.
func (s *Service) ResolveIDs(ctx context.Context, names []string) (map[string]Entity, error) {
	result := make(map[string]Entity, len(names))
	if len(names) == 0 {
		return result, nil
	}

	var misses []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		norm := strings.ToLower(name)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		if ent, ok := s.readEntity(ctx, nameKey(name)); ok {
			result[name] = ent
			continue
		}
		misses = append(misses, name)
	}

	if len(misses) == 0 {
		return result, nil
	}

	// The upstream groups matches by type: {"characters":[{id,name}],
	// "systems":[{id,name}], ...}
	var grouped map[string][]Entity
	if err := s.poster.Post(ctx, s.config.IDsPath, misses, &grouped); err != nil {
		// Partial results beat nothing when the upstream is down
		if len(result) > 0 {
			s.logger.Warn("bulk name resolution failed, returning cached subset",
				"misses", len(misses), "error", err)
			return result, nil
		}
		return nil, fmt.Errorf("failed to resolve names: %w", err)
	}

	byNorm := make(map[string]Entity)
	for group, ents := range grouped {
		category, ok := idGroupCategories[group]
		if !ok {
			category = strings.TrimSuffix(group, "s")
		}
		for _, ent := range ents {
			ent.Category = category
			byNorm[strings.ToLower(ent.Name)] = ent
			s.writeEntity(ctx, ent)
		}
	}
	for _, name := range misses {
		if ent, ok := byNorm[strings.ToLower(name)]; ok {
			result[name] = ent
		}
	}

	return result, nil
}

// ResolveNames maps IDs to entities, the id-to-name direction. Unknown
// IDs are absent from the result. Only IDs missing from the cache go
// upstream, in a single batch; the response is a flat typed array.
func (s *Service) ResolveNames(ctx context.Context, ids []int64) (map[int64]Entity, error) {
	result := make(map[int64]Entity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var misses []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if ent, ok := s.readEntity(ctx, idKey(id)); ok {
			result[id] = ent
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return result, nil
	}

	var resolved []Entity
	if err := s.poster.Post(ctx, s.config.NamesPath, misses, &resolved); err != nil {
		if len(result) > 0 {
			s.logger.Warn("bulk id resolution failed, returning cached subset",
				"misses", len(misses), "error", err)
			return result, nil
		}
		return nil, fmt.Errorf("failed to resolve ids: %w", err)
	}

	for _, ent := range resolved {
		s.writeEntity(ctx, ent)
		result[ent.ID] = ent
	}

	return result, nil
}

// readEntity loads one cached mapping. Misses and substrate failures both
// report a miss.
func (s *Service) readEntity(ctx context.Context, key string) (Entity, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			s.logger.Warn("entity cache read failed", "key", key, "error", err)
		}
		return Entity{}, false
	}

	var ent Entity
	if err := json.Unmarshal(data, &ent); err != nil {
		s.logger.Warn("entity cache entry corrupt, discarding", "key", key, "error", err)
		return Entity{}, false
	}
	return ent, true
}

// writeEntity stores one mapping under both its ID key and its name key,
// so later lookups in either direction hit. Write failures are logged and
// tolerated.
func (s *Service) writeEntity(ctx context.Context, ent Entity) {
	data, err := json.Marshal(ent)
	if err != nil {
		s.logger.Error("failed to encode entity", "id", ent.ID, "error", err)
		return
	}
	for _, key := range []string{idKey(ent.ID), nameKey(ent.Name)} {
		if err := s.cache.Set(ctx, key, data, s.config.TTL); err != nil {
			s.logger.Warn("entity cache write failed", "key", key, "error", err)
		}
	}
}

func idKey(id int64) string {
	return "entity:id:" + strconv.FormatInt(id, 10)
}

func nameKey(name string) string {
	return "entity:name:" + strings.ToLower(name)
}
