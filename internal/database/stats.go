package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	row := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM entities),
		(SELECT COUNT(*) FROM entity_aliases),
		(SELECT COUNT(*) FROM articles),
		(SELECT COUNT(*) FROM articles WHERE expires_at > datetime('now')),
		(SELECT COUNT(*) FROM articles WHERE triage_status = 'pending'),
		(SELECT COUNT(*) FROM article_entities WHERE needs_deep_analysis = 1 AND analysis_completed = 0),
		(SELECT COUNT(*) FROM extraction_events),
		(SELECT COUNT(*) FROM weekly_snapshots),
		(SELECT COUNT(*) FROM weekly_verdicts),
		(SELECT COUNT(*) FROM ml_weekly_features)`)

	if err := row.Scan(&s.Entities, &s.Aliases, &s.TotalArticles, &s.LiveArticles,
		&s.PendingTriage, &s.PendingAnalysis, &s.ExtractionEvents,
		&s.Snapshots, &s.Verdicts, &s.FeatureRows); err != nil {
		return nil, err
	}
	return &s, nil
}
