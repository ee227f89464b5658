package collect

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 20

// FeedEntry is one normalized item out of an RSS/Atom feed.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Content       string
	Source        string
}

// FeedConfig is a single configured feed.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds []FeedConfig
}

// NewFeedParser creates a FeedParser over the configured feeds.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds}
}

// ParseAll parses every configured feed and returns the entries published
// within daysBack. A feed that fails to parse is logged and skipped.
func (fp *FeedParser) ParseAll(daysBack int) []FeedEntry {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	parser := gofeed.NewParser()

	var all []FeedEntry
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = sourceNameFromURL(fc.URL)
		}

		feed, err := parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= maxPerFeed {
				break
			}
			entry := normalizeItem(item, name)
			if entry == nil || !withinWindow(entry.PublishedDate, cutoff) {
				continue
			}
			all = append(all, *entry)
			count++
		}
		log.Printf("Parsed %d entries from %s (within %d days)", count, name, daysBack)
	}

	return all
}

func normalizeItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Content:       content,
		Source:        source,
	}
}

// withinWindow treats an unknown publish date as recent.
func withinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff)
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := result.String()
	replacements := [][2]string{
		{"&nbsp;", " "}, {"&amp;", "&"}, {"&lt;", "<"},
		{"&gt;", ">"}, {"&quot;", `"`}, {"&#39;", "'"},
	}
	for _, rep := range replacements {
		s = strings.ReplaceAll(s, rep[0], rep[1])
	}

	return strings.Join(strings.Fields(s), " ")
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return feedURL
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
