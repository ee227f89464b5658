package collect

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>Max Gawn is <b>out</b>.</p>", "Max Gawn is out ."},
		{"No markup at all", "No markup at all"},
		{"A &amp; B &lt;3 &quot;quoted&quot;", `A & B <3 "quoted"`},
		{"line<br/>break", "line break"},
		{"", ""},
	}
	for _, c := range cases {
		if got := stripHTML(c.in); got != c.want {
			t.Errorf("stripHTML(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWithinWindow(t *testing.T) {
	cutoff := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if !withinWindow("2026-03-15", cutoff) {
		t.Error("date after cutoff should be within window")
	}
	if !withinWindow("2026-03-10", cutoff) {
		t.Error("the cutoff day itself should be within window")
	}
	if withinWindow("2026-03-01", cutoff) {
		t.Error("date before cutoff should be outside window")
	}
	if !withinWindow("", cutoff) {
		t.Error("unknown date should be treated as recent")
	}
	if !withinWindow("not-a-date", cutoff) {
		t.Error("unparseable date should be treated as recent")
	}
}

func TestSourceNameFromURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://www.zerohanger.com/feed", "Zerohanger"},
		{"https://feeds.foxsports.com/afl", "Foxsports"},
		{"https://example.org/rss.xml", "Example"},
	}
	for _, c := range cases {
		if got := sourceNameFromURL(c.in); got != c.want {
			t.Errorf("sourceNameFromURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeItem(t *testing.T) {
	published := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	item := &gofeed.Item{
		Title:           "  Gawn cleared to play  ",
		Link:            "https://example.com/gawn",
		PublishedParsed: &published,
		Description:     "<p>Scans were clear.</p>",
	}

	entry := normalizeItem(item, "Example News")
	if entry == nil {
		t.Fatal("expected a normalized entry")
	}
	if entry.Title != "Gawn cleared to play" {
		t.Errorf("title not trimmed: %q", entry.Title)
	}
	if entry.PublishedDate != "2026-03-12" {
		t.Errorf("unexpected published date %q", entry.PublishedDate)
	}
	if entry.Content != "Scans were clear." {
		t.Errorf("description not stripped: %q", entry.Content)
	}
	if entry.Source != "Example News" {
		t.Errorf("unexpected source %q", entry.Source)
	}
}

func TestNormalizeItemFallbacks(t *testing.T) {
	// GUID stands in for a missing link.
	item := &gofeed.Item{Title: "T", GUID: "https://example.com/guid"}
	entry := normalizeItem(item, "Example")
	if entry == nil || entry.URL != "https://example.com/guid" {
		t.Errorf("GUID fallback failed: %+v", entry)
	}

	// No URL at all is unusable.
	if entry := normalizeItem(&gofeed.Item{Title: "T"}, "Example"); entry != nil {
		t.Errorf("item without URL should be dropped, got %+v", entry)
	}
	// So is a blank title.
	if entry := normalizeItem(&gofeed.Item{Link: "https://example.com"}, "Example"); entry != nil {
		t.Errorf("item without title should be dropped, got %+v", entry)
	}
}
