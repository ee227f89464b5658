package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertSnapshot stores a weekly snapshot keyed by (entity, dimension, round).
func (db *DB) UpsertSnapshot(s Snapshot) error {
	featuresJSON, err := marshalMap(s.MLFeatures)
	if err != nil {
		return err
	}
	idsJSON, err := json.Marshal(s.SourceArticleIDs)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT INTO weekly_snapshots
		(entity_id, dimension_id, round_id, summary, sentiment, signal_strength,
		 fantasy_impact, ml_features, confidence, article_count, source_article_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id, dimension_id, round_id) DO UPDATE SET
			summary = excluded.summary,
			sentiment = excluded.sentiment,
			signal_strength = excluded.signal_strength,
			fantasy_impact = excluded.fantasy_impact,
			ml_features = excluded.ml_features,
			confidence = excluded.confidence,
			article_count = excluded.article_count,
			source_article_ids = excluded.source_article_ids,
			generated_at = datetime('now')`,
		s.EntityID, s.DimensionID, s.RoundID, s.Summary, s.Sentiment, s.SignalStrength,
		s.FantasyImpact, featuresJSON, s.Confidence, s.ArticleCount, string(idsJSON),
	)
	return err
}

// GetSnapshot returns the snapshot for one (entity, dimension, round), or nil.
func (db *DB) GetSnapshot(entityID, dimensionID, roundID int64) (*Snapshot, error) {
	row := db.conn.QueryRow(
		`SELECT `+snapshotColumns+` FROM weekly_snapshots
		WHERE entity_id = ? AND dimension_id = ? AND round_id = ?`,
		entityID, dimensionID, roundID,
	)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetRecentSnapshots returns up to limit snapshots for an (entity,
// dimension), most recent round first.
func (db *DB) GetRecentSnapshots(entityID, dimensionID int64, limit int) ([]SnapshotWithRound, error) {
	rows, err := db.conn.Query(
		`SELECT `+prefixedSnapshotColumns+`, r.number
		FROM weekly_snapshots ws
		JOIN rounds r ON ws.round_id = r.id
		WHERE ws.entity_id = ? AND ws.dimension_id = ?
		ORDER BY r.number DESC LIMIT ?`,
		entityID, dimensionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []SnapshotWithRound
	for rows.Next() {
		var s SnapshotWithRound
		if err := scanSnapshotInto(rows, &s.Snapshot, &s.RoundNumber); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// GetSnapshotsForRound returns all of an entity's snapshots in one round,
// joined to the dimension code, in dimension tier order.
func (db *DB) GetSnapshotsForRound(entityID, roundID int64) ([]SnapshotWithDimension, error) {
	rows, err := db.conn.Query(
		`SELECT `+prefixedSnapshotColumns+`, d.code
		FROM weekly_snapshots ws
		JOIN dimensions d ON ws.dimension_id = d.id
		WHERE ws.entity_id = ? AND ws.round_id = ?
		ORDER BY d.tier, d.id`,
		entityID, roundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []SnapshotWithDimension
	for rows.Next() {
		var s SnapshotWithDimension
		if err := scanSnapshotInto(rows, &s.Snapshot, &s.DimensionCode); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// SnapshotWithRound is a snapshot annotated with its round number.
type SnapshotWithRound struct {
	Snapshot
	RoundNumber int
}

// SnapshotWithDimension is a snapshot annotated with its dimension code.
type SnapshotWithDimension struct {
	Snapshot
	DimensionCode string
}

// UpsertRollingProfile overwrites the rolling trend view for one
// (entity, dimension).
func (db *DB) UpsertRollingProfile(p RollingProfile) error {
	featuresJSON, err := marshalMap(p.AggregatedFeatures)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT INTO rolling_profiles
		(entity_id, dimension_id, narrative, trend, trend_confidence,
		 weeks_covered, last_round_id, aggregated_features)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id, dimension_id) DO UPDATE SET
			narrative = excluded.narrative,
			trend = excluded.trend,
			trend_confidence = excluded.trend_confidence,
			weeks_covered = excluded.weeks_covered,
			last_round_id = excluded.last_round_id,
			aggregated_features = excluded.aggregated_features,
			updated_at = datetime('now')`,
		p.EntityID, p.DimensionID, p.Narrative, p.Trend, p.TrendConfidence,
		p.WeeksCovered, p.LastRoundID, featuresJSON,
	)
	return err
}

// GetRollingProfile returns the trend view for one (entity, dimension),
// or nil when no snapshot period has ever been profiled.
func (db *DB) GetRollingProfile(entityID, dimensionID int64) (*RollingProfile, error) {
	row := db.conn.QueryRow(
		`SELECT entity_id, dimension_id, narrative, trend, trend_confidence,
			weeks_covered, last_round_id, aggregated_features, updated_at
		FROM rolling_profiles WHERE entity_id = ? AND dimension_id = ?`,
		entityID, dimensionID,
	)

	var p RollingProfile
	var featuresJSON *string
	if err := row.Scan(&p.EntityID, &p.DimensionID, &p.Narrative, &p.Trend,
		&p.TrendConfidence, &p.WeeksCovered, &p.LastRoundID, &featuresJSON,
		&p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.AggregatedFeatures = unmarshalMap(featuresJSON)
	return &p, nil
}

// GetProfilesForEntity returns all of an entity's rolling profiles joined
// to the dimension code.
func (db *DB) GetProfilesForEntity(entityID int64) ([]ProfileWithDimension, error) {
	rows, err := db.conn.Query(
		`SELECT rp.entity_id, rp.dimension_id, rp.narrative, rp.trend,
			rp.trend_confidence, rp.weeks_covered, rp.last_round_id,
			rp.aggregated_features, rp.updated_at, d.code
		FROM rolling_profiles rp
		JOIN dimensions d ON rp.dimension_id = d.id
		WHERE rp.entity_id = ?
		ORDER BY d.tier, d.id`, entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []ProfileWithDimension
	for rows.Next() {
		var p ProfileWithDimension
		var featuresJSON *string
		if err := rows.Scan(&p.EntityID, &p.DimensionID, &p.Narrative, &p.Trend,
			&p.TrendConfidence, &p.WeeksCovered, &p.LastRoundID, &featuresJSON,
			&p.UpdatedAt, &p.DimensionCode); err != nil {
			return nil, err
		}
		p.AggregatedFeatures = unmarshalMap(featuresJSON)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ProfileWithDimension is a rolling profile annotated with its dimension code.
type ProfileWithDimension struct {
	RollingProfile
	DimensionCode string
}

// UpsertVerdict stores a weekly verdict keyed by (entity, round).
func (db *DB) UpsertVerdict(v Verdict) error {
	factorsJSON, err := json.Marshal(v.RiskFactors)
	if err != nil {
		return err
	}
	featuresJSON, err := marshalMap(v.VerdictFeatures)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT INTO weekly_verdicts
		(entity_id, round_id, captain_rating, captain_reasoning, risk_level,
		 risk_factors, trade_signal, trade_reasoning, verdict_features, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id, round_id) DO UPDATE SET
			captain_rating = excluded.captain_rating,
			captain_reasoning = excluded.captain_reasoning,
			risk_level = excluded.risk_level,
			risk_factors = excluded.risk_factors,
			trade_signal = excluded.trade_signal,
			trade_reasoning = excluded.trade_reasoning,
			verdict_features = excluded.verdict_features,
			confidence = excluded.confidence,
			generated_at = datetime('now')`,
		v.EntityID, v.RoundID, v.CaptainRating, v.CaptainReasoning, v.RiskLevel,
		string(factorsJSON), v.TradeSignal, v.TradeReasoning, featuresJSON, v.Confidence,
	)
	return err
}

// GetVerdict returns the verdict for one (entity, round), or nil.
func (db *DB) GetVerdict(entityID, roundID int64) (*Verdict, error) {
	row := db.conn.QueryRow(
		`SELECT id, entity_id, round_id, captain_rating, captain_reasoning,
			risk_level, risk_factors, trade_signal, trade_reasoning,
			verdict_features, confidence, generated_at
		FROM weekly_verdicts WHERE entity_id = ? AND round_id = ?`,
		entityID, roundID,
	)

	var v Verdict
	var factorsJSON, featuresJSON *string
	if err := row.Scan(&v.ID, &v.EntityID, &v.RoundID, &v.CaptainRating,
		&v.CaptainReasoning, &v.RiskLevel, &factorsJSON, &v.TradeSignal,
		&v.TradeReasoning, &featuresJSON, &v.Confidence, &v.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if factorsJSON != nil {
		if err := json.Unmarshal([]byte(*factorsJSON), &v.RiskFactors); err != nil {
			v.RiskFactors = nil
		}
	}
	v.VerdictFeatures = unmarshalMap(featuresJSON)
	return &v, nil
}

// GetVerdictEntityIDs returns the entities that have a verdict in a round.
func (db *DB) GetVerdictEntityIDs(roundID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT entity_id FROM weekly_verdicts WHERE round_id = ? ORDER BY entity_id`,
		roundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const snapshotColumns = `id, entity_id, dimension_id, round_id, summary, sentiment,
	signal_strength, fantasy_impact, ml_features, confidence, article_count,
	source_article_ids, generated_at`

const prefixedSnapshotColumns = `ws.id, ws.entity_id, ws.dimension_id, ws.round_id,
	ws.summary, ws.sentiment, ws.signal_strength, ws.fantasy_impact, ws.ml_features,
	ws.confidence, ws.article_count, ws.source_article_ids, ws.generated_at`

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var s Snapshot
	var featuresJSON, idsJSON *string
	if err := row.Scan(&s.ID, &s.EntityID, &s.DimensionID, &s.RoundID, &s.Summary,
		&s.Sentiment, &s.SignalStrength, &s.FantasyImpact, &featuresJSON,
		&s.Confidence, &s.ArticleCount, &idsJSON, &s.GeneratedAt); err != nil {
		return nil, err
	}
	s.MLFeatures = unmarshalMap(featuresJSON)
	decodeArticleIDs(&s, idsJSON)
	return &s, nil
}

func scanSnapshotInto(rows *sql.Rows, s *Snapshot, extra any) error {
	var featuresJSON, idsJSON *string
	if err := rows.Scan(&s.ID, &s.EntityID, &s.DimensionID, &s.RoundID, &s.Summary,
		&s.Sentiment, &s.SignalStrength, &s.FantasyImpact, &featuresJSON,
		&s.Confidence, &s.ArticleCount, &idsJSON, &s.GeneratedAt, extra); err != nil {
		return err
	}
	s.MLFeatures = unmarshalMap(featuresJSON)
	decodeArticleIDs(s, idsJSON)
	return nil
}

func decodeArticleIDs(s *Snapshot, idsJSON *string) {
	if idsJSON == nil {
		return
	}
	if err := json.Unmarshal([]byte(*idsJSON), &s.SourceArticleIDs); err != nil {
		s.SourceArticleIDs = nil
	}
}

func marshalMap(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalMap(s *string) map[string]any {
	if s == nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*s), &m); err != nil {
		return nil
	}
	return m
}
