package process

import (
	"log"
	"strings"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/oracle"
	"github.com/jthornhill/newsintel/internal/tagger"
)

// contextWindow is the number of characters scanned on each side of a
// mention when classifying its context.
const contextWindow = 100

// Processor runs the two-phase article pipeline: fast deterministic
// triage, then oracle-backed deep analysis of the mentions triage flags.
type Processor struct {
	db       *database.DB
	cache    *catalog.Cache
	resolver *catalog.Resolver
	oracle   oracle.Client
	domain   string
}

// TriageResult summarizes one triage batch.
type TriageResult struct {
	Articles      int
	Mentions      int
	NeedsAnalysis int
	Errors        int
}

// New creates a processor. The oracle client may be nil if only triage
// will be run.
func New(db *database.DB, cache *catalog.Cache, client oracle.Client, domain string) *Processor {
	return &Processor{
		db:       db,
		cache:    cache,
		resolver: catalog.NewResolver(db),
		oracle:   client,
		domain:   domain,
	}
}

// RunTriageBatch pulls pending articles, oldest scraped first, and runs
// entity triage on each. A failed article is logged and counted; the
// batch keeps going.
func (p *Processor) RunTriageBatch(batchSize int) (*TriageResult, error) {
	articles, err := p.db.GetPendingTriageArticles(batchSize)
	if err != nil {
		return nil, err
	}

	result := &TriageResult{}
	for _, a := range articles {
		mentions, flagged, err := p.triageArticle(a)
		if err != nil {
			log.Printf("Triage failed for article %d: %v", a.ID, err)
			result.Errors++
			continue
		}
		result.Articles++
		result.Mentions += mentions
		result.NeedsAnalysis += flagged
	}

	if result.Articles > 0 {
		log.Printf("Triaged %d articles: %d mentions, %d flagged for analysis",
			result.Articles, result.Mentions, result.NeedsAnalysis)
	}
	return result, nil
}

// triageArticle scans one article for known player names, classifies the
// context around each mention, and records one mention row per entity.
// Mentions whose context is injury, trade, selection, or return are
// flagged for deep analysis.
func (p *Processor) triageArticle(a database.Article) (mentions, flagged int, err error) {
	patterns, err := p.cache.Patterns(p.db)
	if err != nil {
		return 0, 0, err
	}

	text := a.Title + " " + a.Body
	lowerText := strings.ToLower(text)

	for _, pat := range patterns {
		if pat.EntityType != "player" {
			continue
		}
		locs := pat.Pattern.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}

		// Classify around the text that actually matched, so an
		// alias-only mention gets the same treatment as a canonical one.
		context := detectContext(lowerText, locs[0][0])
		needsAnalysis := context == "injury" || context == "trade" ||
			context == "selection" || context == "return"

		entityID := pat.EntityID
		m := database.EntityMention{
			ArticleID:         a.ID,
			EntityID:          &entityID,
			EntityName:        pat.CanonicalName,
			EntityType:        pat.EntityType,
			MentionCount:      len(locs),
			IsPrimarySubject:  pat.Pattern.MatchString(a.Title),
			MentionContext:    context,
			NeedsDeepAnalysis: needsAnalysis,
		}
		if err := p.db.UpsertEntityMention(m); err != nil {
			return mentions, flagged, err
		}
		mentions++
		if needsAnalysis {
			flagged++
		}
	}

	if err := p.db.MarkTriageCompleted(a.ID); err != nil {
		return mentions, flagged, err
	}
	return mentions, flagged, nil
}

// detectContext classifies the text around a mention starting at idx.
// Keyword groups are tested in priority order and the first group with a
// phrase inside the window wins; no hit means "general". The text must
// already be lowercased.
func detectContext(lowerText string, idx int) string {
	start := idx - contextWindow
	if start < 0 {
		start = 0
	}
	end := idx + contextWindow
	if end > len(lowerText) {
		end = len(lowerText)
	}
	window := lowerText[start:end]

	for _, group := range tagger.ContextPriority {
		for _, phrase := range tagger.PhrasesFor(group) {
			if strings.Contains(window, phrase) {
				return group
			}
		}
	}
	return "general"
}
