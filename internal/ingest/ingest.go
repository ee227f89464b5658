package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/tagger"
)

// DefaultRetentionDays is the bounded lifetime of a cached article.
const DefaultRetentionDays = 7

// Gate deduplicates incoming articles by URL and content fingerprint and
// triggers deterministic tagging after every write.
type Gate struct {
	db            *database.DB
	tagger        *tagger.Tagger
	retentionDays int
}

// NewGate creates an ingestion gate. retentionDays <= 0 uses the default
// 7-day window.
func NewGate(db *database.DB, tg *tagger.Tagger, retentionDays int) *Gate {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Gate{db: db, tagger: tg, retentionDays: retentionDays}
}

// Ingest stores an article, dedupes, and tags. Returns the stored article,
// or nil when the URL was already cached with identical content.
//
// A reappearing URL with changed content is updated in place: body
// replaced, both processing statuses reset to pending, index timestamp
// cleared, and the old tag set dropped before re-tagging. Tagging runs
// after the write commits, never inside it, so a tagging failure cannot
// roll back ingestion.
func (g *Gate) Ingest(url, title, body string, source, publishedAt *string) (*database.Article, error) {
	urlHash := fingerprint(url)
	contentHash := fingerprint(body)

	existing, err := g.db.GetLiveArticleByURLHash(urlHash)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.ContentHash == contentHash {
			return nil, nil // duplicate
		}
		if err := g.db.ReplaceArticleContent(existing.ID, body, contentHash, g.retentionDays); err != nil {
			return nil, err
		}
		// The old body's tags are stale evidence; the new tag set must
		// describe only the content that now exists.
		if err := g.db.DeleteTagsForArticle(existing.ID); err != nil {
			return nil, err
		}
		g.tag(existing.ID, title, body)
		return g.db.GetArticleByID(existing.ID)
	}

	id, err := g.db.InsertArticle(urlHash, contentHash, url, title, body, source, publishedAt, g.retentionDays)
	if err != nil {
		return nil, err
	}
	g.tag(id, title, body)
	return g.db.GetArticleByID(id)
}

// CleanupExpired deletes all articles past their expiry. Idempotent; safe
// to run on any schedule.
func (g *Gate) CleanupExpired() (int, error) {
	return g.db.DeleteExpiredArticles()
}

func (g *Gate) tag(articleID int64, title, body string) {
	if _, err := g.tagger.Tag(articleID, title, body); err != nil {
		log.Printf("Tagging article %d failed: %v", articleID, err)
	}
}

func fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
