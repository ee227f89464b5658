package database

// UpsertEntityMention records a triage result for one (article, entity)
// pair. A rerun updates the mention count, context, and analysis flag
// rather than duplicating the row.
func (db *DB) UpsertEntityMention(m EntityMention) error {
	_, err := db.conn.Exec(
		`INSERT INTO article_entities
		(article_id, entity_id, entity_name, entity_type, mention_count,
		 is_primary_subject, mention_context, needs_deep_analysis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (article_id, entity_name) DO UPDATE SET
			mention_count = excluded.mention_count,
			mention_context = excluded.mention_context,
			is_primary_subject = excluded.is_primary_subject,
			needs_deep_analysis = excluded.needs_deep_analysis`,
		m.ArticleID, m.EntityID, m.EntityName, m.EntityType, m.MentionCount,
		boolToInt(m.IsPrimarySubject), m.MentionContext, boolToInt(m.NeedsDeepAnalysis),
	)
	return err
}

// GetMentionsForArticle returns all entity mentions recorded for an article.
func (db *DB) GetMentionsForArticle(articleID int64) ([]EntityMention, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_id, entity_id, entity_name, entity_type, mention_count,
			is_primary_subject, mention_context, needs_deep_analysis, analysis_completed
		FROM article_entities WHERE article_id = ? ORDER BY entity_name`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []EntityMention
	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, err
		}
		mentions = append(mentions, *m)
	}
	return mentions, rows.Err()
}

// GetPendingAnalysis returns up to limit mentions flagged for deep analysis
// and not yet completed, most recently published first, joined to their
// article and resolved entity.
func (db *DB) GetPendingAnalysis(limit int) ([]PendingAnalysis, error) {
	rows, err := db.conn.Query(
		`SELECT ae.id, ae.article_id, ae.entity_id, ae.entity_name, ae.entity_type,
			ae.mention_count, ae.is_primary_subject, ae.mention_context,
			ae.needs_deep_analysis, ae.analysis_completed,
			a.title, a.body, a.url, a.source, a.published_at,
			COALESCE(e.canonical_name, '')
		FROM article_entities ae
		JOIN articles a ON ae.article_id = a.id
		LEFT JOIN entities e ON ae.entity_id = e.id
		WHERE ae.needs_deep_analysis = 1 AND ae.analysis_completed = 0
		ORDER BY a.published_at DESC, ae.id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingAnalysis
	for rows.Next() {
		var p PendingAnalysis
		var primary, needs, completed int
		if err := rows.Scan(&p.ID, &p.ArticleID, &p.EntityID, &p.EntityName, &p.EntityType,
			&p.MentionCount, &primary, &p.MentionContext, &needs, &completed,
			&p.Title, &p.Body, &p.URL, &p.Source, &p.PublishedAt,
			&p.CanonicalName); err != nil {
			return nil, err
		}
		p.IsPrimarySubject = primary != 0
		p.NeedsDeepAnalysis = needs != 0
		p.AnalysisCompleted = completed != 0
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkAnalysisCompleted flips the mention's completion flag. It is set
// exactly once per mention, after either a stored event or a decided
// "nothing to write".
func (db *DB) MarkAnalysisCompleted(mentionID int64) error {
	_, err := db.conn.Exec(
		`UPDATE article_entities SET analysis_completed = 1 WHERE id = ?`, mentionID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMention(row rowScanner) (*EntityMention, error) {
	var m EntityMention
	var primary, needs, completed int
	if err := row.Scan(&m.ID, &m.ArticleID, &m.EntityID, &m.EntityName, &m.EntityType,
		&m.MentionCount, &primary, &m.MentionContext, &needs, &completed); err != nil {
		return nil, err
	}
	m.IsPrimarySubject = primary != 0
	m.NeedsDeepAnalysis = needs != 0
	m.AnalysisCompleted = completed != 0
	return &m, nil
}
