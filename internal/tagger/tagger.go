package tagger

import (
	"log"
	"strings"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/database"
)

// Tagger deterministically tags articles against the entity catalog and
// the keyword table. It runs synchronously at ingest, before any oracle
// analysis, and is safe to rerun: tags are upserted, never duplicated.
type Tagger struct {
	db    *database.DB
	cache *catalog.Cache
}

// Stats counts the tags written for one article.
type Stats struct {
	Entities int
	Keywords int
}

// ReindexStats accumulates tag counts across a reindex run.
type ReindexStats struct {
	Articles int
	Entities int
	Keywords int
}

// New creates a tagger sharing the given pattern cache.
func New(db *database.DB, cache *catalog.Cache) *Tagger {
	return &Tagger{db: db, cache: cache}
}

type entityKey struct {
	EntityID   int64
	EntityType string
	Canonical  string
}

type matchData struct {
	Count      int
	IsHeadline bool
	MatchText  string
}

// Tag scans the article text for entity names and keyword phrases and
// upserts one tag row per distinct entity and keyword. Individual tag
// failures are logged and skipped; the article is stamped indexed at the
// end either way.
func (t *Tagger) Tag(articleID int64, title, body string) (*Stats, error) {
	patterns, err := t.cache.Patterns(t.db)
	if err != nil {
		return nil, err
	}
	dimensionIDs, err := t.cache.DimensionIDs(t.db)
	if err != nil {
		return nil, err
	}

	text := title + "\n" + body
	titleLen := len(title)

	// Entity matches, deduped per (entity, type) with first-encounter order
	// preserved so upserts are deterministic.
	entityMatches := make(map[entityKey]*matchData)
	var entityOrder []entityKey
	for _, p := range patterns {
		locs := p.Pattern.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			key := entityKey{p.EntityID, p.EntityType, p.CanonicalName}
			m, ok := entityMatches[key]
			if !ok {
				m = &matchData{}
				entityMatches[key] = m
				entityOrder = append(entityOrder, key)
			}
			m.Count++
			if loc[0] < titleLen {
				m.IsHeadline = true
			}
			if m.MatchText == "" {
				m.MatchText = truncate(text[loc[0]:loc[1]], 200)
			}
		}
	}

	// Keyword matches, accumulated per normalized tag value.
	lower := strings.ToLower(text)
	keywordMatches := make(map[string]*matchData)
	var keywordOrder []string
	for _, rule := range keywordTable {
		idx := 0
		for {
			found := strings.Index(lower[idx:], rule.Phrase)
			if found == -1 {
				break
			}
			pos := idx + found
			m, ok := keywordMatches[rule.Tag]
			if !ok {
				m = &matchData{}
				keywordMatches[rule.Tag] = m
				keywordOrder = append(keywordOrder, rule.Tag)
			}
			m.Count++
			if pos < titleLen {
				m.IsHeadline = true
			}
			idx = pos + len(rule.Phrase)
		}
	}

	stats := &Stats{}
	for _, key := range entityOrder {
		m := entityMatches[key]
		entityID := key.EntityID
		matchText := m.MatchText
		tag := database.Tag{
			ArticleID:  articleID,
			TagType:    key.EntityType,
			TagValue:   key.Canonical,
			EntityID:   &entityID,
			MatchText:  &matchText,
			MatchCount: m.Count,
			IsHeadline: m.IsHeadline,
		}
		if err := t.db.UpsertTag(tag); err != nil {
			log.Printf("Failed to tag article %d with %s %q: %v", articleID, key.EntityType, key.Canonical, err)
			continue
		}
		stats.Entities++
	}

	for _, tagValue := range keywordOrder {
		m := keywordMatches[tagValue]
		tag := database.Tag{
			ArticleID:  articleID,
			TagType:    "keyword",
			TagValue:   tagValue,
			MatchCount: m.Count,
			IsHeadline: m.IsHeadline,
		}
		if code, ok := keywordDimensions[tagValue]; ok {
			if dimID, ok := dimensionIDs[code]; ok {
				tag.DimensionID = &dimID
			}
		}
		if err := t.db.UpsertTag(tag); err != nil {
			log.Printf("Failed to tag article %d with keyword %q: %v", articleID, tagValue, err)
			continue
		}
		stats.Keywords++
	}

	if err := t.db.MarkArticleIndexed(articleID); err != nil {
		return stats, err
	}

	log.Printf("Indexed article %d: %d entities, %d keywords", articleID, stats.Entities, stats.Keywords)
	return stats, nil
}

// ReindexAll repeatedly pulls un-indexed articles, oldest scraped first,
// and tags them until none remain. Used for backfills after catalog
// changes (invalidate the pattern cache first).
func (t *Tagger) ReindexAll(batchSize int) (*ReindexStats, error) {
	total := &ReindexStats{}
	for {
		articles, err := t.db.GetUnindexedArticles(batchSize)
		if err != nil {
			return total, err
		}
		if len(articles) == 0 {
			return total, nil
		}

		indexed := 0
		for _, a := range articles {
			stats, err := t.Tag(a.ID, a.Title, a.Body)
			if err != nil {
				log.Printf("Failed to reindex article %d: %v", a.ID, err)
				continue
			}
			indexed++
			total.Articles++
			total.Entities += stats.Entities
			total.Keywords += stats.Keywords
		}
		// Every article in the batch failed and stayed un-indexed; bail
		// rather than spin on the same batch forever.
		if indexed == 0 {
			return total, nil
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
