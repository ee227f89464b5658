package catalog

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/jthornhill/newsintel/internal/database"
)

// EntityPattern is one compiled whole-word name pattern bound to its entity.
type EntityPattern struct {
	Pattern       *regexp.Regexp
	EntityID      int64
	CanonicalName string
	EntityType    string
}

// Cache holds the compiled entity name patterns and the dimension code map
// shared by the tagger and triage. It rebuilds lazily on first use and must
// be invalidated explicitly after catalog mutation. A rebuild swaps the
// whole pattern list in at once; readers never see a partial build.
type Cache struct {
	domain string

	mu           sync.RWMutex
	patterns     []EntityPattern
	dimensionIDs map[string]int64
}

// NewCache creates a pattern cache for one domain.
func NewCache(domain string) *Cache {
	return &Cache{domain: domain}
}

// Patterns returns the compiled entity patterns, building them on first use.
func (c *Cache) Patterns(db *database.DB) ([]EntityPattern, error) {
	c.mu.RLock()
	patterns := c.patterns
	c.mu.RUnlock()
	if patterns != nil {
		return patterns, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.patterns != nil {
		return c.patterns, nil
	}

	built, err := buildPatterns(db, c.domain)
	if err != nil {
		return nil, err
	}
	c.patterns = built
	log.Printf("Loaded %d entity patterns for %s", len(built), c.domain)
	return built, nil
}

// DimensionIDs returns the active dimension code -> id map, building it on
// first use.
func (c *Cache) DimensionIDs(db *database.DB) (map[string]int64, error) {
	c.mu.RLock()
	ids := c.dimensionIDs
	c.mu.RUnlock()
	if ids != nil {
		return ids, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimensionIDs != nil {
		return c.dimensionIDs, nil
	}

	loaded, err := db.GetDimensionIDMap()
	if err != nil {
		return nil, err
	}
	c.dimensionIDs = loaded
	return loaded, nil
}

// Invalidate drops the cached patterns and dimension map. Call after any
// entity, alias, or dimension mutation; the next read rebuilds.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.patterns = nil
	c.dimensionIDs = nil
	c.mu.Unlock()
}

// buildPatterns compiles a whole-word, case-insensitive pattern for every
// canonical name and alias. When a canonical name and an alias share the
// same underlying text only the first-seen pattern is kept, so one mention
// is never counted twice.
func buildPatterns(db *database.DB, domain string) ([]EntityPattern, error) {
	rows, err := db.GetEntityPatternRows(domain)
	if err != nil {
		return nil, err
	}

	patterns := make([]EntityPattern, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		key := strings.ToLower(row.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(row.Name) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern for %q: %w", row.Name, err)
		}
		patterns = append(patterns, EntityPattern{
			Pattern:       re,
			EntityID:      row.EntityID,
			CanonicalName: row.CanonicalName,
			EntityType:    row.EntityType,
		})
	}
	return patterns, nil
}
