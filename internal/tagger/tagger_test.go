package tagger

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestTagger(t *testing.T, db *database.DB) *Tagger {
	t.Helper()
	return New(db, catalog.NewCache("afl"))
}

func insertArticle(t *testing.T, db *database.DB, title, body string) int64 {
	t.Helper()
	url := fmt.Sprintf("https://example.com/%s", title)
	id, err := db.InsertArticle("uh-"+title, "ch-"+title, url, title, body, nil, nil, 7)
	if err != nil || id == 0 {
		t.Fatalf("failed to insert article: id=%d err=%v", id, err)
	}
	return id
}

func TestTagEntityAndKeyword(t *testing.T) {
	db := openTestDB(t)
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	tg := newTestTagger(t, db)

	title := "Max Gawn injured"
	body := "Max Gawn has a hamstring problem."
	articleID := insertArticle(t, db, title, body)

	stats, err := tg.Tag(articleID, title, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entities != 1 || stats.Keywords != 1 {
		t.Fatalf("expected 1 entity + 1 keyword tag, got %+v", stats)
	}

	tags, err := db.GetTagsForArticle(articleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}

	// Entity tags sort before keyword tags.
	player := tags[0]
	if player.TagType != "player" || player.TagValue != "Max Gawn" {
		t.Errorf("unexpected entity tag %+v", player)
	}
	if player.EntityID == nil || *player.EntityID != entityID {
		t.Errorf("entity tag should carry the entity ID")
	}
	if player.MatchCount != 2 {
		t.Errorf("name appears in title and body, want count 2, got %d", player.MatchCount)
	}
	if !player.IsHeadline {
		t.Errorf("title mention should set the headline flag")
	}

	keyword := tags[1]
	if keyword.TagType != "keyword" || keyword.TagValue != "injury" {
		t.Errorf("unexpected keyword tag %+v", keyword)
	}
	// "injured" and "hamstring" both land in the injury group.
	if keyword.MatchCount != 2 {
		t.Errorf("want injury count 2, got %d", keyword.MatchCount)
	}
	if !keyword.IsHeadline {
		t.Errorf("injury phrase in the title should set the headline flag")
	}
	if keyword.DimensionID == nil {
		t.Errorf("injury keyword should bind to the injury_status dimension")
	}
}

func TestTagWholeWordBoundary(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Sam May", nil, nil)
	tg := newTestTagger(t, db)

	title := "Samuel Mayhew signs on"
	body := "No whole-word mention of the player here."
	articleID := insertArticle(t, db, title, body)

	stats, err := tg.Tag(articleID, title, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entities != 0 {
		t.Errorf("substring inside larger words must not match, got %d entity tags", stats.Entities)
	}
}

func TestTagAliasCountsOnce(t *testing.T) {
	db := openTestDB(t)
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	if err := db.AddAlias(entityID, "Gawny", "manual", 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := newTestTagger(t, db)

	title := "Ruck watch"
	body := "Max Gawn dominated again. Gawny is in career-best touch."
	articleID := insertArticle(t, db, title, body)

	stats, err := tg.Tag(articleID, title, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Entities != 1 {
		t.Fatalf("canonical and alias hits should collapse to one tag, got %d", stats.Entities)
	}

	tags, _ := db.GetTagsForArticle(articleID)
	var player *database.Tag
	for i := range tags {
		if tags[i].TagType == "player" {
			player = &tags[i]
		}
	}
	if player == nil {
		t.Fatal("expected a player tag")
	}
	if player.TagValue != "Max Gawn" {
		t.Errorf("alias hit should tag under the canonical name, got %q", player.TagValue)
	}
	if player.MatchCount != 2 {
		t.Errorf("canonical + alias occurrences should both count, got %d", player.MatchCount)
	}
}

func TestTagIdempotent(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	tg := newTestTagger(t, db)

	title := "Max Gawn hamstring scare"
	body := "Scans pending."
	articleID := insertArticle(t, db, title, body)

	if _, err := tg.Tag(articleID, title, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := db.GetTagsForArticle(articleID)

	if _, err := tg.Tag(articleID, title, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := db.GetTagsForArticle(articleID)

	if len(first) != len(second) {
		t.Fatalf("re-tagging must not duplicate tags: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].MatchCount != second[i].MatchCount {
			t.Errorf("tag %q count changed on re-tag: %d -> %d",
				first[i].TagValue, first[i].MatchCount, second[i].MatchCount)
		}
	}
}

func TestTagMarksIndexed(t *testing.T) {
	db := openTestDB(t)
	tg := newTestTagger(t, db)

	articleID := insertArticle(t, db, "Plain article", "Nothing matches here at all.")

	before, _ := db.GetUnindexedArticles(10)
	if len(before) != 1 {
		t.Fatalf("expected 1 un-indexed article, got %d", len(before))
	}

	if _, err := tg.Tag(articleID, "Plain article", "Nothing matches here at all."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := db.GetUnindexedArticles(10)
	if len(after) != 0 {
		t.Errorf("article should be stamped indexed even with zero tags")
	}
}

func TestReindexAll(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	tg := newTestTagger(t, db)

	insertArticle(t, db, "Max Gawn in doubt", "Gawn carries a knee complaint.")
	insertArticle(t, db, "Trade period opens", "Clubs circle a restricted free agent.")

	stats, err := tg.ReindexAll(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Articles != 2 {
		t.Errorf("expected 2 articles reindexed, got %d", stats.Articles)
	}

	again, err := tg.ReindexAll(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Articles != 0 {
		t.Errorf("second reindex should find nothing, got %d", again.Articles)
	}
}

func TestPhrasesForOrdering(t *testing.T) {
	phrases := PhrasesFor("injury")
	if len(phrases) == 0 || phrases[0] != "injur" {
		t.Fatalf("injury group should start with its table-order first phrase, got %v", phrases)
	}
	if PhrasesFor("no-such-group") != nil {
		t.Errorf("unknown group should yield no phrases")
	}
}
