package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertFeatureRow stores the flattened ML feature row for one
// (entity, round). The row is fully derived from snapshots and the
// verdict; recomputing it must always be safe.
func (db *DB) UpsertFeatureRow(f FeatureRow) error {
	dimJSON, err := json.Marshal(f.DimensionFeatures)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT INTO ml_weekly_features
		(entity_id, round_id, dimension_features, captain_rating, risk_level,
		 trade_signal, injury_risk_score, form_score, selection_certainty,
		 upside_potential, floor_safety, total_article_count,
		 overall_sentiment, overall_signal_strength, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id, round_id) DO UPDATE SET
			dimension_features = excluded.dimension_features,
			captain_rating = excluded.captain_rating,
			risk_level = excluded.risk_level,
			trade_signal = excluded.trade_signal,
			injury_risk_score = excluded.injury_risk_score,
			form_score = excluded.form_score,
			selection_certainty = excluded.selection_certainty,
			upside_potential = excluded.upside_potential,
			floor_safety = excluded.floor_safety,
			total_article_count = excluded.total_article_count,
			overall_sentiment = excluded.overall_sentiment,
			overall_signal_strength = excluded.overall_signal_strength,
			confidence = excluded.confidence,
			generated_at = datetime('now')`,
		f.EntityID, f.RoundID, string(dimJSON), f.CaptainRating, f.RiskLevel,
		f.TradeSignal, f.InjuryRiskScore, f.FormScore, f.SelectionCertainty,
		f.UpsidePotential, f.FloorSafety, f.TotalArticleCount,
		f.OverallSentiment, f.OverallSignalStrength, f.Confidence,
	)
	return err
}

// GetFeatureRow returns the flattened row for one (entity, round), or nil.
func (db *DB) GetFeatureRow(entityID, roundID int64) (*FeatureRow, error) {
	row := db.conn.QueryRow(
		`SELECT entity_id, round_id, dimension_features, captain_rating, risk_level,
			trade_signal, injury_risk_score, form_score, selection_certainty,
			upside_potential, floor_safety, total_article_count,
			overall_sentiment, overall_signal_strength, confidence, generated_at
		FROM ml_weekly_features WHERE entity_id = ? AND round_id = ?`,
		entityID, roundID,
	)

	var f FeatureRow
	var dimJSON string
	if err := row.Scan(&f.EntityID, &f.RoundID, &dimJSON, &f.CaptainRating,
		&f.RiskLevel, &f.TradeSignal, &f.InjuryRiskScore, &f.FormScore,
		&f.SelectionCertainty, &f.UpsidePotential, &f.FloorSafety,
		&f.TotalArticleCount, &f.OverallSentiment, &f.OverallSignalStrength,
		&f.Confidence, &f.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(dimJSON), &f.DimensionFeatures); err != nil {
		f.DimensionFeatures = nil
	}
	return &f, nil
}
