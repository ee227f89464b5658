package process

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jthornhill/newsintel/internal/catalog"
	"github.com/jthornhill/newsintel/internal/database"
)

// mockOracle replays canned responses in order, repeating the last one.
type mockOracle struct {
	responses []string
	err       error
	calls     int
}

func (m *mockOracle) Ask(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *mockOracle) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestProcessor(t *testing.T, db *database.DB, client *mockOracle) *Processor {
	t.Helper()
	if client == nil {
		return New(db, catalog.NewCache("afl"), nil, "afl")
	}
	return New(db, catalog.NewCache("afl"), client, "afl")
}

func insertArticle(t *testing.T, db *database.DB, url, title, body string) int64 {
	t.Helper()
	id, err := db.InsertArticle("uh-"+url, "ch-"+url, url, title, body, nil, nil, 7)
	if err != nil || id == 0 {
		t.Fatalf("failed to insert article: id=%d err=%v", id, err)
	}
	return id
}

func TestTriageRecordsInjuryMention(t *testing.T) {
	db := openTestDB(t)
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	articleID := insertArticle(t, db, "https://example.com/a",
		"Max Gawn ruled out",
		"Max Gawn has been ruled out with a hamstring injury.")
	proc := newTestProcessor(t, db, nil)

	result, err := proc.RunTriageBatch(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Articles != 1 || result.Mentions != 1 || result.NeedsAnalysis != 1 {
		t.Fatalf("unexpected triage result %+v", result)
	}

	mentions, err := db.GetMentionsForArticle(articleID)
	if err != nil || len(mentions) != 1 {
		t.Fatalf("expected 1 mention, got %d (err %v)", len(mentions), err)
	}
	m := mentions[0]
	if m.EntityID == nil || *m.EntityID != entityID {
		t.Errorf("mention should carry the catalog entity ID")
	}
	if m.MentionContext != "injury" {
		t.Errorf("expected injury context, got %q", m.MentionContext)
	}
	if m.MentionCount != 2 {
		t.Errorf("name appears twice, got count %d", m.MentionCount)
	}
	if !m.IsPrimarySubject {
		t.Errorf("name in the title should mark the mention primary")
	}
	if !m.NeedsDeepAnalysis {
		t.Errorf("injury context must flag deep analysis")
	}
}

func TestTriageInjuryBeatsSelection(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	articleID := insertArticle(t, db, "https://example.com/a",
		"Team news",
		"Max Gawn was named despite an ankle injury.")
	proc := newTestProcessor(t, db, nil)

	if _, err := proc.RunTriageBatch(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mentions, _ := db.GetMentionsForArticle(articleID)
	if len(mentions) != 1 {
		t.Fatalf("expected 1 mention, got %d", len(mentions))
	}
	// Both groups match inside the window; injury is tested first.
	if mentions[0].MentionContext != "injury" {
		t.Errorf("expected injury to win over selection, got %q", mentions[0].MentionContext)
	}
	if mentions[0].IsPrimarySubject {
		t.Errorf("name absent from the title should not be primary")
	}
}

func TestTriageGeneralContextNotFlagged(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	insertArticle(t, db, "https://example.com/a",
		"Off-field notes",
		"Max Gawn spoke to the media about the club's new facilities.")
	proc := newTestProcessor(t, db, nil)

	result, err := proc.RunTriageBatch(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Mentions != 1 || result.NeedsAnalysis != 0 {
		t.Fatalf("general context must not flag analysis, got %+v", result)
	}

	pending, _ := db.GetPendingAnalysis(10)
	if len(pending) != 0 {
		t.Errorf("no mention should be queued for analysis, got %d", len(pending))
	}
}

func TestTriageSkipsTeamEntities(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "team", "Melbourne", nil, nil)
	insertArticle(t, db, "https://example.com/a",
		"Melbourne climb the ladder",
		"Melbourne recorded a fourth straight win.")
	proc := newTestProcessor(t, db, nil)

	result, err := proc.RunTriageBatch(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Mentions != 0 {
		t.Errorf("triage scans player patterns only, got %d mentions", result.Mentions)
	}

	// The article is still marked triaged.
	remaining, _ := db.GetPendingTriageArticles(10)
	if len(remaining) != 0 {
		t.Errorf("article should leave the triage queue, %d still pending", len(remaining))
	}
}

func TestTriageRerunIsEmpty(t *testing.T) {
	db := openTestDB(t)
	db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	insertArticle(t, db, "https://example.com/a", "Max Gawn update", "Max Gawn trained fully.")
	proc := newTestProcessor(t, db, nil)

	if _, err := proc.RunTriageBatch(10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := proc.RunTriageBatch(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Articles != 0 {
		t.Errorf("triage queue should be empty on rerun, got %d articles", second.Articles)
	}
}

func TestDetectContextWindowBound(t *testing.T) {
	// The injury phrase sits well past 100 characters from the mention, so
	// it must not influence the classification.
	filler := ""
	for i := 0; i < 30; i++ {
		filler += "lorem ipsum "
	}
	text := "max gawn led the ruck division. " + filler + "elsewhere an unrelated player suffered an injury."

	if got := detectContext(text, strings.Index(text, "max gawn")); got != "general" {
		t.Errorf("phrase outside the window must not match, got %q", got)
	}

	text = "scans confirmed a calf strain for max gawn this week"
	if got := detectContext(text, strings.Index(text, "max gawn")); got != "injury" {
		t.Errorf("phrase inside the window should classify, got %q", got)
	}
}

func TestTriageAliasMention(t *testing.T) {
	db := openTestDB(t)
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	if err := db.AddAlias(entityID, "Gawny", "manual", 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The canonical name never appears; only the alias does.
	articleID := insertArticle(t, db, "https://example.com/a",
		"Gawny ruled out",
		"Gawny has been ruled out with a hamstring injury.")
	proc := newTestProcessor(t, db, nil)

	result, err := proc.RunTriageBatch(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NeedsAnalysis != 1 {
		t.Fatalf("alias-only injury mention must be flagged, got %+v", result)
	}

	mentions, _ := db.GetMentionsForArticle(articleID)
	if len(mentions) != 1 {
		t.Fatalf("expected 1 mention, got %d", len(mentions))
	}
	m := mentions[0]
	if m.EntityName != "Max Gawn" {
		t.Errorf("mention should be recorded under the canonical name, got %q", m.EntityName)
	}
	if m.MentionContext != "injury" {
		t.Errorf("context must classify around the alias text, got %q", m.MentionContext)
	}
	if !m.NeedsDeepAnalysis {
		t.Errorf("injury context via alias must flag deep analysis")
	}
	if !m.IsPrimarySubject {
		t.Errorf("alias in the title should mark the mention primary")
	}
}

// seedFlaggedMention triages one injury article and returns the entity ID.
func seedFlaggedMention(t *testing.T, db *database.DB) int64 {
	t.Helper()
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	insertArticle(t, db, "https://example.com/injury",
		"Max Gawn ruled out",
		"Max Gawn has been ruled out with a hamstring injury and will miss three weeks.")
	proc := newTestProcessor(t, db, nil)
	if _, err := proc.RunTriageBatch(10); err != nil {
		t.Fatalf("seed triage failed: %v", err)
	}
	return entityID
}

func TestAnalysisCreatesEvent(t *testing.T) {
	db := openTestDB(t)
	entityID := seedFlaggedMention(t, db)
	mock := &mockOracle{responses: []string{
		`{"event_type": "injury", "player": "Max Gawn", "injury_type": "hamstring",
		  "severity": "moderate", "return_weeks": 3, "summary": "Out three weeks.", "confidence": 0.9}`,
	}}
	proc := newTestProcessor(t, db, mock)

	result, err := proc.RunAnalysisBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Events != 1 {
		t.Fatalf("expected one event, got %+v", result)
	}

	events, err := db.GetEventsForEntity(entityID, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d (err %v)", len(events), err)
	}
	ev := events[0]
	if ev.SchemaType != "injury" {
		t.Errorf("expected injury event, got %q", ev.SchemaType)
	}
	if ev.Confidence == nil || *ev.Confidence != 0.9 {
		t.Errorf("confidence not carried through: %v", ev.Confidence)
	}
	if ev.ExtractedData["injury_type"] != "hamstring" {
		t.Errorf("payload not stored verbatim: %v", ev.ExtractedData)
	}

	pending, _ := db.GetPendingAnalysis(10)
	if len(pending) != 0 {
		t.Errorf("analyzed mention should be completed, %d still pending", len(pending))
	}
}

func TestAnalysisBelowGateClosesWithoutEvent(t *testing.T) {
	db := openTestDB(t)
	entityID := seedFlaggedMention(t, db)
	mock := &mockOracle{responses: []string{
		`{"event_type": "injury", "summary": "Vague speculation.", "confidence": 0.25}`,
	}}
	proc := newTestProcessor(t, db, mock)

	result, err := proc.RunAnalysisBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Events != 0 || result.Skipped != 1 {
		t.Fatalf("low confidence must skip the event, got %+v", result)
	}

	events, _ := db.GetEventsForEntity(entityID, 10)
	if len(events) != 0 {
		t.Errorf("no event should be stored below the gate, got %d", len(events))
	}
	pending, _ := db.GetPendingAnalysis(10)
	if len(pending) != 0 {
		t.Errorf("mention must still be closed, %d pending", len(pending))
	}
}

func TestAnalysisMalformedResponse(t *testing.T) {
	db := openTestDB(t)
	entityID := seedFlaggedMention(t, db)
	mock := &mockOracle{responses: []string{"I could not produce JSON, sorry."}}
	proc := newTestProcessor(t, db, mock)

	result, err := proc.RunAnalysisBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 1 {
		t.Fatalf("unparseable response should close without event, got %+v", result)
	}
	events, _ := db.GetEventsForEntity(entityID, 10)
	if len(events) != 0 {
		t.Errorf("no event expected, got %d", len(events))
	}
}

func TestAnalysisEventWriteOncePerArticleEntity(t *testing.T) {
	db := openTestDB(t)
	entityID, _ := db.CreateEntity("afl", "player", "Max Gawn", nil, nil)
	articleID := insertArticle(t, db, "https://example.com/a",
		"Gawn latest", "Injury latest on the Melbourne ruckman.")

	// Two mention rows for the same entity under different surface names;
	// both resolve to the canonical name and therefore the same fingerprint.
	for _, name := range []string{"Max Gawn", "Gawny"} {
		m := database.EntityMention{
			ArticleID:         articleID,
			EntityID:          &entityID,
			EntityName:        name,
			EntityType:        "player",
			MentionCount:      1,
			MentionContext:    "injury",
			NeedsDeepAnalysis: true,
		}
		if err := db.UpsertEntityMention(m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	mock := &mockOracle{responses: []string{
		`{"event_type": "injury", "player": "Max Gawn", "summary": "Sore knee.", "confidence": 0.8}`,
	}}
	proc := newTestProcessor(t, db, mock)

	result, err := proc.RunAnalysisBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("both mentions should be processed, got %+v", result)
	}

	events, _ := db.GetEventsForEntity(entityID, 10)
	if len(events) != 1 {
		t.Errorf("same article + entity must yield exactly one event, got %d", len(events))
	}
}

func TestAnalysisOracleFailureClosesMention(t *testing.T) {
	db := openTestDB(t)
	seedFlaggedMention(t, db)
	mock := &mockOracle{err: context.DeadlineExceeded}
	proc := newTestProcessor(t, db, mock)

	result, err := proc.RunAnalysisBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 1 {
		t.Fatalf("oracle failure should close the mention without event, got %+v", result)
	}
	pending, _ := db.GetPendingAnalysis(10)
	if len(pending) != 0 {
		t.Errorf("mention should not be retried forever, %d pending", len(pending))
	}
}
