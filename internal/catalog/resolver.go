package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jthornhill/newsintel/internal/database"
)

// fuzzyThreshold is the minimum normalized similarity for a fuzzy match.
const fuzzyThreshold = 0.80

// searchLimit bounds the candidate listing per resolution attempt.
const searchLimit = 5

// Resolver maps free-text names to canonical entities.
type Resolver struct {
	db *database.DB
}

// NewResolver creates a resolver over the identity catalog.
func NewResolver(db *database.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve maps a name to an entity, or nil when no confident match exists.
// Strategy, first hit wins:
//  1. exact case-insensitive match on canonical name
//  2. exact case-insensitive match via an alias
//  3. fuzzy match on canonical name, accepted at >= 0.80 similarity;
//     ties broken by highest score, then shortest canonical name, then
//     lowest entity ID.
func (r *Resolver) Resolve(name, domain, entityType string) (*database.Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	candidates, err := r.db.SearchEntities(name, domain, searchLimit)
	if err != nil {
		return nil, err
	}
	if entityType != "" {
		candidates = filterByType(candidates, entityType)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	lower := strings.ToLower(name)

	for _, c := range candidates {
		if strings.ToLower(c.CanonicalName) == lower {
			e := c.Entity
			return &e, nil
		}
	}

	for _, c := range candidates {
		if c.MatchType == "alias" {
			e := c.Entity
			return &e, nil
		}
	}

	var best *database.Entity
	var bestScore float64
	for _, c := range candidates {
		score := similarity(lower, strings.ToLower(c.CanonicalName))
		if score < fuzzyThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && betterTie(c.Entity, *best)) {
			e := c.Entity
			best = &e
			bestScore = score
		}
	}
	return best, nil
}

// ResolveFromPayload resolves the entity name fields of an extraction
// payload, deduplicating by resolved identity. Names that do not resolve
// are dropped silently.
func (r *Resolver) ResolveFromPayload(payload map[string]any, domain string) ([]database.Entity, error) {
	singularFields := []string{"player", "team", "from_team", "to_team"}
	listFields := []string{"ins", "outs", "assets_mentioned"}

	var resolved []database.Entity
	seen := make(map[int64]bool)

	add := func(name string) error {
		entity, err := r.Resolve(name, domain, "")
		if err != nil {
			return err
		}
		if entity != nil && !seen[entity.ID] {
			resolved = append(resolved, *entity)
			seen[entity.ID] = true
		}
		return nil
	}

	for _, field := range singularFields {
		if name, ok := payload[field].(string); ok && name != "" {
			if err := add(name); err != nil {
				return nil, err
			}
		}
	}

	for _, field := range listFields {
		names, ok := payload[field].([]any)
		if !ok {
			continue
		}
		for _, v := range names {
			if name, ok := v.(string); ok && name != "" {
				if err := add(name); err != nil {
					return nil, err
				}
			}
		}
	}

	return resolved, nil
}

// similarity is a normalized Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

func betterTie(a, b database.Entity) bool {
	if len(a.CanonicalName) != len(b.CanonicalName) {
		return len(a.CanonicalName) < len(b.CanonicalName)
	}
	return a.ID < b.ID
}

func filterByType(candidates []database.EntityMatch, entityType string) []database.EntityMatch {
	var filtered []database.EntityMatch
	for _, c := range candidates {
		if c.EntityType == entityType {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
