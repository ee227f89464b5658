package weekly

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jthornhill/newsintel/internal/database"
	"github.com/jthornhill/newsintel/internal/oracle"
)

// ErrNotReady reports that a verdict has no evidence to synthesize: the
// entity has no snapshots for the round. Callers treat it as "come back
// after snapshots exist", not as a failure.
var ErrNotReady = errors.New("no snapshots for round, verdict not ready")

// snapshotArticleLimit caps the articles fed into one snapshot prompt.
const snapshotArticleLimit = 5

// snapshotBodyLimit caps each article body inside a snapshot prompt.
const snapshotBodyLimit = 2000

// profileWindow is the number of recent rounds a rolling profile covers.
const profileWindow = 4

const maxTokens = 1024

// Processor generates weekly snapshots, rolling profiles, and verdicts.
type Processor struct {
	db     *database.DB
	oracle oracle.Client
	domain string
}

// Result summarizes one round's aggregation run. Errors holds one line
// per failed unit; a failed unit never aborts the run.
type Result struct {
	Snapshots int
	Profiles  int
	Verdicts  int
	Errors    []string
}

// New creates a weekly processor.
func New(db *database.DB, client oracle.Client, domain string) *Processor {
	return &Processor{db: db, oracle: client, domain: domain}
}

// ProcessRound runs the three aggregation stages for every player (or the
// given subset) against one round: per-dimension snapshots, then rolling
// profiles, then the cross-dimension verdict.
func (p *Processor) ProcessRound(ctx context.Context, roundID int64, entityIDs []int64) (*Result, error) {
	entities, err := p.loadEntities(entityIDs)
	if err != nil {
		return nil, err
	}
	dimensions, err := p.db.GetActiveDimensions()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, entity := range entities {
		for _, dim := range dimensions {
			created, err := p.generateSnapshot(ctx, entity, dim, roundID)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("snapshot %s/%s: %v", entity.CanonicalName, dim.Code, err))
				continue
			}
			if created {
				result.Snapshots++
			}
		}

		for _, dim := range dimensions {
			updated, err := p.updateRollingProfile(ctx, entity, dim, roundID)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("profile %s/%s: %v", entity.CanonicalName, dim.Code, err))
				continue
			}
			if updated {
				result.Profiles++
			}
		}

		if err := p.generateVerdict(ctx, entity, roundID); err != nil {
			if !errors.Is(err, ErrNotReady) {
				result.Errors = append(result.Errors,
					fmt.Sprintf("verdict %s: %v", entity.CanonicalName, err))
			}
			continue
		}
		result.Verdicts++
	}

	log.Printf("Round %d: %d snapshots, %d profiles, %d verdicts, %d errors",
		roundID, result.Snapshots, result.Profiles, result.Verdicts, len(result.Errors))
	return result, nil
}

func (p *Processor) loadEntities(entityIDs []int64) ([]database.Entity, error) {
	if len(entityIDs) == 0 {
		playerType := "player"
		return p.db.GetEntities(p.domain, &playerType)
	}

	var entities []database.Entity
	for _, id := range entityIDs {
		e, err := p.db.GetEntityByID(id)
		if err != nil {
			return nil, err
		}
		if e != nil && e.EntityType == "player" {
			entities = append(entities, *e)
		}
	}
	return entities, nil
}

// generateSnapshot summarizes one dimension's evidence for one entity in
// one round. Returns false with no error when there is nothing to
// summarize or the oracle response was unusable.
func (p *Processor) generateSnapshot(ctx context.Context, entity database.Entity, dim database.Dimension, roundID int64) (bool, error) {
	articles, err := p.db.GetArticlesForEntityDimension(entity.ID, dim.ID, roundID)
	if err != nil {
		return false, err
	}
	if len(articles) == 0 {
		return false, nil
	}

	prompt := buildSnapshotPrompt(entity.CanonicalName, dim, articles)
	response, err := p.oracle.Ask(ctx, prompt, maxTokens)
	if err != nil {
		return false, err
	}
	payload := oracle.ParseJSONResponse(response)
	if payload == nil {
		log.Printf("Unusable snapshot response for %s/%s", entity.CanonicalName, dim.Code)
		return false, nil
	}

	sourceIDs := make([]int64, 0, len(articles))
	for _, a := range articles {
		sourceIDs = append(sourceIDs, a.ID)
	}

	snapshot := database.Snapshot{
		EntityID:         entity.ID,
		DimensionID:      dim.ID,
		RoundID:          roundID,
		Summary:          getString(payload, "summary", ""),
		Sentiment:        getString(payload, "sentiment", "neutral"),
		SignalStrength:   getString(payload, "signal_strength", "none"),
		MLFeatures:       getMap(payload, "ml_features"),
		Confidence:       getFloat(payload, "confidence", 0.5),
		ArticleCount:     len(articles),
		SourceArticleIDs: sourceIDs,
	}
	if impact := getString(payload, "fantasy_impact", ""); impact != "" {
		snapshot.FantasyImpact = &impact
	}

	if err := p.db.UpsertSnapshot(snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// updateRollingProfile rewrites the single trend row for one
// entity-dimension pair from its most recent snapshots.
func (p *Processor) updateRollingProfile(ctx context.Context, entity database.Entity, dim database.Dimension, roundID int64) (bool, error) {
	snapshots, err := p.db.GetRecentSnapshots(entity.ID, dim.ID, profileWindow)
	if err != nil {
		return false, err
	}
	if len(snapshots) == 0 {
		return false, nil
	}

	prompt := buildProfilePrompt(entity.CanonicalName, dim, snapshots)
	response, err := p.oracle.Ask(ctx, prompt, maxTokens)
	if err != nil {
		return false, err
	}
	payload := oracle.ParseJSONResponse(response)
	if payload == nil {
		log.Printf("Unusable profile response for %s/%s", entity.CanonicalName, dim.Code)
		return false, nil
	}

	lastRound := roundID
	profile := database.RollingProfile{
		EntityID:           entity.ID,
		DimensionID:        dim.ID,
		Narrative:          getString(payload, "narrative", ""),
		Trend:              getString(payload, "trend", "stable"),
		TrendConfidence:    getFloat(payload, "trend_confidence", 0.5),
		WeeksCovered:       len(snapshots),
		LastRoundID:        &lastRound,
		AggregatedFeatures: getMap(payload, "aggregated_features"),
	}

	if err := p.db.UpsertRollingProfile(profile); err != nil {
		return false, err
	}
	return true, nil
}

// generateVerdict synthesizes the round's snapshots and all current
// profiles into one composite verdict. Returns ErrNotReady when the
// entity has no snapshots for the round.
func (p *Processor) generateVerdict(ctx context.Context, entity database.Entity, roundID int64) error {
	snapshots, err := p.db.GetSnapshotsForRound(entity.ID, roundID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return ErrNotReady
	}

	profiles, err := p.db.GetProfilesForEntity(entity.ID)
	if err != nil {
		return err
	}

	prompt := buildVerdictPrompt(entity.CanonicalName, snapshots, profiles)
	response, err := p.oracle.Ask(ctx, prompt, maxTokens)
	if err != nil {
		return err
	}
	payload := oracle.ParseJSONResponse(response)
	if payload == nil {
		return fmt.Errorf("unusable verdict response for %s", entity.CanonicalName)
	}

	verdict := database.Verdict{
		EntityID:        entity.ID,
		RoundID:         roundID,
		CaptainRating:   getInt(payload, "captain_rating", 50),
		RiskLevel:       getString(payload, "risk_level", "medium"),
		RiskFactors:     getStringList(payload, "risk_factors"),
		TradeSignal:     getString(payload, "trade_signal", "hold"),
		VerdictFeatures: getMap(payload, "verdict_features"),
		Confidence:      getFloat(payload, "confidence", 0.5),
	}
	if reasoning := getString(payload, "captain_reasoning", ""); reasoning != "" {
		verdict.CaptainReasoning = &reasoning
	}
	if reasoning := getString(payload, "trade_reasoning", ""); reasoning != "" {
		verdict.TradeReasoning = &reasoning
	}

	return p.db.UpsertVerdict(verdict)
}
