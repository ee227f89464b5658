package process

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/oracle"
)

// confidenceGate is the minimum extraction confidence for an event to be
// recorded. Below the gate the mention is closed with no event.
const confidenceGate = 0.30

// analysisBodyLimit caps the article body passed to the extraction prompt.
const analysisBodyLimit = 4000

// analysisMaxTokens bounds the oracle's extraction response.
const analysisMaxTokens = 1024

// AnalysisResult summarizes one deep-analysis batch.
type AnalysisResult struct {
	Processed int
	Events    int
	Skipped   int
	Errors    int
}

// RunAnalysisBatch pulls flagged mentions, newest published first, and
// runs deep extraction on each. Every processed mention ends completed
// exactly once, whether or not an event was recorded; a failed mention is
// logged and counted, and the batch keeps going.
func (p *Processor) RunAnalysisBatch(ctx context.Context, batchSize int) (*AnalysisResult, error) {
	pending, err := p.db.GetPendingAnalysis(batchSize)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{}
	for _, item := range pending {
		created, err := p.analyzeMention(ctx, item)
		if err != nil {
			log.Printf("Analysis failed for mention %d (%s): %v", item.ID, item.EntityName, err)
			result.Errors++
			continue
		}
		result.Processed++
		if created {
			result.Events++
		} else {
			result.Skipped++
		}
	}

	if result.Processed > 0 {
		log.Printf("Analyzed %d mentions: %d events, %d below gate",
			result.Processed, result.Events, result.Skipped)
	}
	return result, nil
}

// analyzeMention runs one oracle extraction. Returns true when an
// extraction event was written. An oracle failure, unparseable response,
// or confidence below the gate closes the mention without an event.
func (p *Processor) analyzeMention(ctx context.Context, item database.PendingAnalysis) (bool, error) {
	name := item.CanonicalName
	if name == "" {
		name = item.EntityName
	}

	prompt := buildExtractionPrompt(name, item)
	response, err := p.oracle.Ask(ctx, prompt, analysisMaxTokens)
	if err != nil {
		log.Printf("Oracle extraction failed for %s: %v", name, err)
		return false, p.db.MarkAnalysisCompleted(item.ID)
	}

	payload := oracle.ParseJSONResponse(response)
	if payload == nil {
		log.Printf("Unparseable extraction response for %s", name)
		return false, p.db.MarkAnalysisCompleted(item.ID)
	}

	confidence, _ := payload["confidence"].(float64)
	if confidence < confidenceGate {
		return false, p.db.MarkAnalysisCompleted(item.ID)
	}

	eventType, _ := payload["event_type"].(string)
	if eventType == "" {
		eventType = "other"
	}

	entityIDs, err := p.eventEntityIDs(item, payload)
	if err != nil {
		return false, err
	}

	headline := item.Title
	url := item.URL
	event := database.ExtractionEvent{
		Domain:            p.domain,
		SchemaType:        eventType,
		ArticleHash:       eventFingerprint(item.URL, name),
		Headline:          &headline,
		Source:            item.Source,
		SourceURL:         &url,
		ExtractedData:     payload,
		EntitiesMentioned: entityIDs,
		Confidence:        &confidence,
	}

	// Duplicate fingerprints are a silent no-op: the same article/entity
	// pair analyzed twice yields one event.
	if _, err := p.db.InsertExtractionEvent(event); err != nil {
		return false, err
	}
	return true, p.db.MarkAnalysisCompleted(item.ID)
}

// eventEntityIDs collects the mention's own entity plus every payload
// name that resolves through the catalog, deduplicated by id.
func (p *Processor) eventEntityIDs(item database.PendingAnalysis, payload map[string]any) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	if item.EntityID != nil {
		ids = append(ids, *item.EntityID)
		seen[*item.EntityID] = true
	}

	resolved, err := p.resolver.ResolveFromPayload(payload, p.domain)
	if err != nil {
		return nil, err
	}
	for _, e := range resolved {
		if !seen[e.ID] {
			ids = append(ids, e.ID)
			seen[e.ID] = true
		}
	}
	return ids, nil
}

// eventFingerprint keys an extraction event by article URL and entity
// name, so re-analysis can never duplicate an event.
func eventFingerprint(url, name string) string {
	sum := sha256.Sum256([]byte(url + ":" + name))
	return hex.EncodeToString(sum[:])
}

func buildExtractionPrompt(name string, item database.PendingAnalysis) string {
	body := item.Body
	if len(body) > analysisBodyLimit {
		body = body[:analysisBodyLimit]
	}

	return fmt.Sprintf(`Analyze this news article about %s.

ARTICLE:
Title: %s
Source: %s
Published: %s

Content:
%s

Extract information about %s:

1. EVENT_TYPE: injury | return | trade | selection | form | contract | other
2. ENTITIES: "player", "team", "from_team", "to_team" where applicable;
   "ins", "outs", "assets_mentioned" as lists of names
3. If INJURY:
   - injury_type: hamstring, calf, shoulder, knee, concussion, etc.
   - severity: minor | moderate | severe | season_ending
   - return_weeks: number of weeks, or return_round: round number
4. KEY_QUOTES: direct quotes about %s (max 3)
5. SUMMARY: 2-3 sentence summary of the news about %s
6. CONFIDENCE: 0.0-1.0

Respond with ONLY JSON:
{"event_type": "injury", "player": "...", "team": "...", "injury_type": "hamstring",
 "severity": "moderate", "return_weeks": 3, "return_round": null,
 "quotes": [{"text": "...", "speaker": "..."}], "summary": "...", "confidence": 0.9}`,
		name, item.Title, deref(item.Source), deref(item.PublishedAt), body, name, name, name)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
