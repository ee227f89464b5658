package collect

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsArticle is an article returned by the news API.
type NewsArticle struct {
	URL           string
	Title         string
	PublishedDate string
	Content       string
	Source        string
}

// NewsAPIClient fetches articles from NewsAPI.
type NewsAPIClient struct {
	apiKey string
	client *http.Client
}

// NewNewsAPIClient creates a client reading its key from the environment.
func NewNewsAPIClient(apiKeyEnv string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey: os.Getenv(apiKeyEnv),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Search searches for articles matching a query. Failures are logged and
// return no articles.
func (c *NewsAPIClient) Search(query string, daysBack, pageSize int) []NewsArticle {
	if c.apiKey == "" {
		log.Println("News API not configured, skipping search")
		return nil
	}

	fromDate := time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02")
	toDate := time.Now().Format("2006-01-02")

	if pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {query},
		"from":     {fromDate},
		"to":       {toDate},
		"language": {"en"},
		"pageSize": {fmt.Sprintf("%d", pageSize)},
		"sortBy":   {"relevancy"},
	}

	req, err := http.NewRequest("GET", newsAPIBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("News API request error: %v", err)
		return nil
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("News API error: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("News API HTTP error: %d", resp.StatusCode)
		return nil
	}

	var result struct {
		Status   string `json:"status"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Content     string `json:"content"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("News API decode error: %v", err)
		return nil
	}
	if result.Status != "ok" {
		log.Printf("News API status: %s", result.Status)
		return nil
	}

	var articles []NewsArticle
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		var pubDate string
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				pubDate = t.Format("2006-01-02")
			}
		}

		content := strings.TrimSpace(a.Content)
		if content == "" {
			content = strings.TrimSpace(a.Description)
		}

		source := "NewsAPI"
		if a.Source.Name != "" {
			source = a.Source.Name
		}

		articles = append(articles, NewsArticle{
			URL:           a.URL,
			Title:         strings.TrimSpace(a.Title),
			PublishedDate: pubDate,
			Content:       content,
			Source:        source,
		})
	}

	log.Printf("Fetched %d articles from news API for query: %s", len(articles), query)
	return articles
}

// SearchWithEntities runs the base query plus one narrowed query per
// tracked name, deduplicating by URL across all result sets.
func (c *NewsAPIClient) SearchWithEntities(baseQuery string, names []string, daysBack int) []NewsArticle {
	seen := make(map[string]struct{})
	var all []NewsArticle

	add := func(articles []NewsArticle) {
		for _, a := range articles {
			if _, ok := seen[a.URL]; !ok {
				seen[a.URL] = struct{}{}
				all = append(all, a)
			}
		}
	}

	add(c.Search(baseQuery, daysBack, 100))
	for _, name := range names {
		add(c.Search(baseQuery+" "+name, daysBack, 50))
	}

	return all
}
