package features

import (
	"fmt"
	"log"

	"github.com/jthornhill/newsintel/internal/database"
)

// sentimentScale maps snapshot sentiment labels to [0, 1]. Unknown or
// missing labels read as neutral.
var sentimentScale = map[string]float64{
	"positive": 0.75,
	"neutral":  0.5,
	"negative": 0.25,
	"mixed":    0.5,
}

// signalScale maps signal strength labels to [0, 1]. Unknown or missing
// labels read as no signal.
var signalScale = map[string]float64{
	"strong":   1.0,
	"moderate": 0.66,
	"weak":     0.33,
	"none":     0.0,
}

// dimensionCodes is the fixed feature vocabulary. Every row carries a
// slot per code regardless of what was mentioned, so downstream training
// sees a stable shape; the overall signal denominator is this count.
var dimensionCodes = []string{
	"injury_status",
	"fitness_health",
	"selection_security",
	"role_change",
	"form_trajectory",
	"captaincy_potential",
	"load_management",
	"coaching_sentiment",
}

// Generator flattens weekly intelligence into numeric ML rows. It is
// fully deterministic: no oracle involved, rerunning a round rewrites
// identical rows.
type Generator struct {
	db *database.DB
}

// Result summarizes one generation run.
type Result struct {
	Generated int
	Errors    []string
}

// New creates a feature generator.
func New(db *database.DB) *Generator {
	return &Generator{db: db}
}

// GenerateForRound builds one feature row per entity holding a verdict
// for the round. A failed entity is recorded and skipped.
func (g *Generator) GenerateForRound(roundID int64) (*Result, error) {
	entityIDs, err := g.db.GetVerdictEntityIDs(roundID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, entityID := range entityIDs {
		generated, err := g.generateEntityRow(entityID, roundID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %d: %v", entityID, err))
			continue
		}
		if generated {
			result.Generated++
		}
	}

	log.Printf("Round %d: generated %d feature rows, %d errors",
		roundID, result.Generated, len(result.Errors))
	return result, nil
}

// generateEntityRow projects one entity's snapshots and verdict into a
// flat row. No verdict means no row.
func (g *Generator) generateEntityRow(entityID, roundID int64) (bool, error) {
	verdict, err := g.db.GetVerdict(entityID, roundID)
	if err != nil {
		return false, err
	}
	if verdict == nil {
		return false, nil
	}

	snapshots, err := g.db.GetSnapshotsForRound(entityID, roundID)
	if err != nil {
		return false, err
	}

	dims := make(map[string]database.DimensionFeature, len(dimensionCodes))
	for _, code := range dimensionCodes {
		dims[code] = database.DimensionFeature{Sentiment: 0.5, Signal: 0.0}
	}

	totalArticles := 0
	sentimentSum := 0.0
	sentimentCount := 0
	signalSum := 0.0

	for _, snap := range snapshots {
		if _, known := dims[snap.DimensionCode]; !known {
			continue
		}
		sentiment := scale(sentimentScale, snap.Sentiment, 0.5)
		signal := scale(signalScale, snap.SignalStrength, 0.0)
		dims[snap.DimensionCode] = database.DimensionFeature{
			Mentioned: snap.ArticleCount > 0,
			Sentiment: sentiment,
			Signal:    signal,
		}

		totalArticles += snap.ArticleCount
		if snap.Sentiment != "" {
			sentimentSum += sentiment
			sentimentCount++
		}
		signalSum += signal
	}

	overallSentiment := 0.5
	if sentimentCount > 0 {
		overallSentiment = sentimentSum / float64(sentimentCount)
	}

	vf := verdict.VerdictFeatures
	row := database.FeatureRow{
		EntityID:              entityID,
		RoundID:               roundID,
		DimensionFeatures:     dims,
		CaptainRating:         verdict.CaptainRating,
		RiskLevel:             verdict.RiskLevel,
		TradeSignal:           verdict.TradeSignal,
		InjuryRiskScore:       score(vf, "injury_risk"),
		FormScore:             score(vf, "form_score"),
		SelectionCertainty:    score(vf, "selection_certainty"),
		UpsidePotential:       score(vf, "upside_potential"),
		FloorSafety:           score(vf, "floor_safety"),
		TotalArticleCount:     totalArticles,
		OverallSentiment:      overallSentiment,
		OverallSignalStrength: signalSum / float64(len(dimensionCodes)),
		Confidence:            verdict.Confidence,
	}

	if err := g.db.UpsertFeatureRow(row); err != nil {
		return false, err
	}
	return true, nil
}

func scale(m map[string]float64, label string, fallback float64) float64 {
	if v, ok := m[label]; ok {
		return v
	}
	return fallback
}

// score reads one verdict sub-score, defaulting to the 0.5 midpoint.
func score(vf map[string]any, key string) float64 {
	if vf == nil {
		return 0.5
	}
	if v, ok := vf[key].(float64); ok {
		return v
	}
	return 0.5
}
