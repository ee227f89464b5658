package collect

import (
	"log"

	"github.com/jthornhill/newsintel/internal/config"
	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/ingest"
)

// minBodyLength is the body size below which a feed entry is considered
// thin and the full page is fetched instead.
const minBodyLength = 300

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	NewArticles int
	Updated     int
	Duplicates  int
	Errors      int
	Sources     map[string]int
}

// Collector pulls articles from RSS feeds and the news API and funnels
// every candidate through the ingestion gate, which owns all dedup.
type Collector struct {
	gate       *ingest.Gate
	db         *database.DB
	feedParser *FeedParser
	newsClient *NewsAPIClient
	newsQuery  string
	fetcher    *ContentFetcher
	domain     string
	daysBack   int
}

// NewCollector creates a collector from the configured sources.
func NewCollector(cfg *config.Config, db *database.DB, gate *ingest.Gate, daysBack int) *Collector {
	c := &Collector{
		gate:     gate,
		db:       db,
		fetcher:  NewContentFetcher(0),
		domain:   cfg.Domain,
		daysBack: daysBack,
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds)
	}

	apiCfg := cfg.Sources.APIs.NewsAPI
	if apiCfg.Enabled {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKeyEnv)
		c.newsQuery = apiCfg.Query
	}

	return c
}

// Collect gathers articles from all configured sources and ingests them.
func (c *Collector) Collect() *Result {
	r := &Result{Sources: make(map[string]int)}

	if c.feedParser != nil {
		log.Println("Collecting from RSS feeds...")
		entries := c.feedParser.ParseAll(c.daysBack)
		r.TotalFound += len(entries)
		for _, entry := range entries {
			c.ingestEntry(r, entry.URL, entry.Title, entry.Content, entry.Source, entry.PublishedDate)
		}
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() {
		log.Println("Collecting from news API...")
		articles := c.searchNewsAPI()
		r.TotalFound += len(articles)
		for _, a := range articles {
			c.ingestEntry(r, a.URL, a.Title, a.Content, a.Source, a.PublishedDate)
		}
	}

	log.Printf("Collection complete: %d found, %d new, %d updated, %d duplicates",
		r.TotalFound, r.NewArticles, r.Updated, r.Duplicates)
	return r
}

// searchNewsAPI queries the news API, widening the base query with the
// catalog's player names when any are registered.
func (c *Collector) searchNewsAPI() []NewsArticle {
	playerType := "player"
	players, err := c.db.GetEntities(c.domain, &playerType)
	if err != nil {
		log.Printf("Failed to load players for search: %v", err)
		players = nil
	}

	var names []string
	for _, p := range players {
		names = append(names, p.CanonicalName)
	}

	if len(names) > 0 {
		return c.newsClient.SearchWithEntities(c.newsQuery, names, c.daysBack)
	}
	return c.newsClient.Search(c.newsQuery, c.daysBack, 100)
}

// ingestEntry pushes one candidate through the gate, fetching the full
// page first when the feed body is thin. Gate outcomes map onto counts:
// nil article = duplicate, reset statuses = content update, else new.
func (c *Collector) ingestEntry(r *Result, url, title, body, source, publishedDate string) {
	if len(body) < minBodyLength {
		if fetched := c.fetcher.FetchBody(url); fetched != "" {
			body = fetched
		}
	}

	var sourcePtr, datePtr *string
	if source != "" {
		sourcePtr = &source
	}
	if publishedDate != "" {
		datePtr = &publishedDate
	}

	article, err := c.gate.Ingest(url, title, body, sourcePtr, datePtr)
	if err != nil {
		log.Printf("Failed to ingest %s: %v", url, err)
		r.Errors++
		return
	}
	if article == nil {
		r.Duplicates++
		return
	}
	// An in-place content update comes back with mentions from its
	// previous life still attached; a fresh insert has none.
	mentions, err := c.db.GetMentionsForArticle(article.ID)
	if err == nil && len(mentions) > 0 {
		r.Updated++
	} else {
		r.NewArticles++
	}
	r.Sources[source]++
}
