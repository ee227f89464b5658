package ingest

import (
	"path/filepath"
	"testing"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/tagger"
)

func newTestGate(t *testing.T) (*Gate, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	tg := tagger.New(db, catalog.NewCache("afl"))
	return NewGate(db, tg, 7), db
}

func TestIngestNewArticle(t *testing.T) {
	gate, _ := newTestGate(t)

	source := "Example News"
	article, err := gate.Ingest("https://example.com/a", "A title", "A body.", &source, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article == nil {
		t.Fatal("expected a stored article")
	}
	if article.TriageStatus != "pending" || article.AnalysisStatus != "pending" {
		t.Errorf("fresh article should be pending/pending, got %s/%s",
			article.TriageStatus, article.AnalysisStatus)
	}
	if article.IndexedAt == nil {
		t.Errorf("ingestion should have tagged and stamped the article indexed")
	}
}

func TestIngestDuplicateURL(t *testing.T) {
	gate, _ := newTestGate(t)

	first, err := gate.Ingest("https://example.com/a", "A title", "A body.", nil, nil)
	if err != nil || first == nil {
		t.Fatalf("seed ingest failed: article=%v err=%v", first, err)
	}

	dup, err := gate.Ingest("https://example.com/a", "A title", "A body.", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup != nil {
		t.Errorf("identical URL + content should be a silent duplicate, got %+v", dup)
	}
}

func TestIngestChangedContentResetsStatuses(t *testing.T) {
	gate, db := newTestGate(t)

	first, err := gate.Ingest("https://example.com/a", "A title", "Original body.", nil, nil)
	if err != nil || first == nil {
		t.Fatalf("seed ingest failed: article=%v err=%v", first, err)
	}
	if err := db.MarkTriageCompleted(first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := gate.Ingest("https://example.com/a", "A title", "Revised body.", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("changed content should return the updated article")
	}
	if updated.ID != first.ID {
		t.Errorf("update must be in place, got new row %d (was %d)", updated.ID, first.ID)
	}
	if updated.Body != "Revised body." {
		t.Errorf("body not replaced: %q", updated.Body)
	}
	if updated.TriageStatus != "pending" {
		t.Errorf("content change must reset triage to pending, got %s", updated.TriageStatus)
	}
}

func TestIngestRetagsOnUpdate(t *testing.T) {
	gate, db := newTestGate(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)

	first, err := gate.Ingest("https://example.com/a", "Ruck news", "Nothing relevant yet.", nil, nil)
	if err != nil || first == nil {
		t.Fatalf("seed ingest failed: article=%v err=%v", first, err)
	}
	tags, _ := db.GetTagsForArticle(first.ID)
	if len(tags) != 0 {
		t.Fatalf("expected no tags on the seed body, got %d", len(tags))
	}

	updated, err := gate.Ingest("https://example.com/a", "Ruck news", "Max Gawn is managing a sore knee.", nil, nil)
	if err != nil || updated == nil {
		t.Fatalf("update ingest failed: article=%v err=%v", updated, err)
	}

	tags, _ = db.GetTagsForArticle(updated.ID)
	var foundEntity bool
	for _, tag := range tags {
		if tag.TagType == "player" && tag.TagValue == "Max Gawn" {
			foundEntity = true
		}
	}
	if !foundEntity {
		t.Errorf("updated body should be re-tagged, tags: %+v", tags)
	}
}

func TestIngestUpdateDropsStaleTags(t *testing.T) {
	gate, db := newTestGate(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)

	first, err := gate.Ingest("https://example.com/a", "Ruck news",
		"Max Gawn is managing a sore knee.", nil, nil)
	if err != nil || first == nil {
		t.Fatalf("seed ingest failed: article=%v err=%v", first, err)
	}
	if tags, _ := db.GetTagsForArticle(first.ID); len(tags) == 0 {
		t.Fatal("seed body should have produced tags")
	}

	// The corrected story no longer mentions the player or any injury.
	updated, err := gate.Ingest("https://example.com/a", "Ruck news",
		"The club issued a retraction of an earlier story.", nil, nil)
	if err != nil || updated == nil {
		t.Fatalf("update ingest failed: article=%v err=%v", updated, err)
	}

	tags, _ := db.GetTagsForArticle(updated.ID)
	if len(tags) != 0 {
		t.Errorf("tags matching only the old body must not survive the update, got %+v", tags)
	}
}

func TestCleanupExpired(t *testing.T) {
	gate, db := newTestGate(t)

	// Retention -1 expires the row immediately.
	if _, err := db.InsertArticle("uh", "ch", "https://example.com/old", "Old", "Old body.", nil, nil, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := gate.Ingest("https://example.com/fresh", "Fresh", "Fresh body.", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := gate.CleanupExpired()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected exactly the expired article deleted, got %d", deleted)
	}
}
