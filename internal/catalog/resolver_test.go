package catalog

import (
	"path/filepath"
	"testing"

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

func seedPlayer(t *testing.T, db *database.DB, name string) int64 {
	t.Helper()
	id, err := db.CreateEntity("afl", "player", name, nil, nil)
	if err != nil || id == 0 {
		t.Fatalf("failed to seed player %q: id=%d err=%v", name, id, err)
	}
	return id
}

func TestResolveExactCanonical(t *testing.T) {
	db := openTestDB(t)
	id := seedPlayer(t, db, "Max Gawn")
	r := NewResolver(db)

	entity, err := r.Resolve("max gawn", "afl", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity == nil || entity.ID != id {
		t.Fatalf("expected exact case-insensitive match, got %+v", entity)
	}
}

func TestResolveViaAlias(t *testing.T) {
	db := openTestDB(t)
	id := seedPlayer(t, db, "Max Gawn")
	if err := db.AddAlias(id, "Gawny", "manual", 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := NewResolver(db)

	entity, err := r.Resolve("Gawny", "afl", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity == nil || entity.ID != id {
		t.Fatalf("expected alias match, got %+v", entity)
	}
	if entity.CanonicalName != "Max Gawn" {
		t.Errorf("alias should resolve to canonical entity, got %q", entity.CanonicalName)
	}
}

func TestResolveFuzzyTruncatedName(t *testing.T) {
	db := openTestDB(t)
	id := seedPlayer(t, db, "Max Gawn")
	r := NewResolver(db)

	// "Max Gaw" lists "Max Gawn" as a candidate but matches neither
	// canonical nor alias exactly; one missing rune in 8 gives 0.875
	// similarity, above the 0.80 gate.
	entity, err := r.Resolve("Max Gaw", "afl", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity == nil || entity.ID != id {
		t.Fatalf("expected fuzzy match for near-identical name, got %+v", entity)
	}
}

func TestResolveBelowThreshold(t *testing.T) {
	db := openTestDB(t)
	seedPlayer(t, db, "Max Gawn")
	r := NewResolver(db)

	// "Gawn" lists the entity as a candidate, but 4 of 8 runes differ:
	// similarity 0.5, below the gate.
	entity, err := r.Resolve("Gawn", "afl", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity != nil {
		t.Errorf("expected no match below 0.80 similarity, got %+v", entity)
	}
}

func TestResolveBlankName(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	entity, err := r.Resolve("   ", "afl", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity != nil {
		t.Errorf("blank name should resolve to nil, got %+v", entity)
	}
}

func TestResolveTypeFilter(t *testing.T) {
	db := openTestDB(t)
	seedPlayer(t, db, "Melbourne Smith")
	teamID, _ := db.CreateEntity("afl", "team", "Melbourne", nil, nil)
	r := NewResolver(db)

	entity, err := r.Resolve("Melbourne", "afl", "team")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity == nil || entity.ID != teamID {
		t.Fatalf("expected team match under type filter, got %+v", entity)
	}
}

func TestResolveFromPayload(t *testing.T) {
	db := openTestDB(t)
	gawnID := seedPlayer(t, db, "Max Gawn")
	oliverID := seedPlayer(t, db, "Clayton Oliver")
	teamID, _ := db.CreateEntity("afl", "team", "Melbourne", nil, nil)
	r := NewResolver(db)

	payload := map[string]any{
		"player":           "Max Gawn",
		"team":             "Melbourne",
		"ins":              []any{"Clayton Oliver", "Somebody Unknown"},
		"assets_mentioned": []any{"Max Gawn"}, // duplicate of player
	}

	resolved, err := r.ResolveFromPayload(payload, "afl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected 3 distinct entities (unknown dropped, duplicate deduped), got %d", len(resolved))
	}

	seen := make(map[int64]bool)
	for _, e := range resolved {
		seen[e.ID] = true
	}
	for _, want := range []int64{gawnID, oliverID, teamID} {
		if !seen[want] {
			t.Errorf("expected entity %d in resolved set", want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if s := similarity("max gawn", "max gawn"); s != 1.0 {
		t.Errorf("identical strings should score 1.0, got %f", s)
	}
	if s := similarity("", ""); s != 1.0 {
		t.Errorf("two empty strings should score 1.0, got %f", s)
	}
	if s := similarity("max gawn", "max gawm"); s < 0.80 {
		t.Errorf("single substitution should stay above threshold, got %f", s)
	}
	if s := similarity("abc", "xyz"); s != 0.0 {
		t.Errorf("disjoint strings should score 0.0, got %f", s)
	}
}
