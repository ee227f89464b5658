package collect

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// minExtractedLength is the smallest readability result worth keeping;
// anything shorter is usually a paywall stub or a cookie banner.
const minExtractedLength = 100

// ContentFetcher fetches full article text via HTTP + readability
// extraction. Domains that return an HTTP error are skipped for the rest
// of the run.
type ContentFetcher struct {
	client        *http.Client
	failedDomains map[string]struct{}
}

// NewContentFetcher creates a content fetcher. timeout 0 uses 15s.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// FetchBody returns the readable text of the page, or "" when nothing
// extractable came back. Failures are logged, never returned.
func (f *ContentFetcher) FetchBody(articleURL string) string {
	domain := hostOf(articleURL)
	if _, failed := f.failedDomains[domain]; failed {
		return ""
	}

	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "newsintel/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if domain != "" {
			f.failedDomains[domain] = struct{}{}
			log.Printf("HTTP %d from %s, skipping remaining fetches from %s", resp.StatusCode, articleURL, domain)
		}
		return ""
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(articleURL)
	page, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) < minExtractedLength {
		return ""
	}
	return text
}

func hostOf(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
