package database

// UpsertTag inserts a tag or, on a (article, type, value) conflict, updates
// the occurrence count and headline flag so re-tagging never duplicates.
func (db *DB) UpsertTag(tag Tag) error {
	_, err := db.conn.Exec(
		`INSERT INTO article_tags
		(article_id, tag_type, tag_value, entity_id, dimension_id, match_text, match_count, is_headline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (article_id, tag_type, tag_value) DO UPDATE SET
			match_count = excluded.match_count,
			is_headline = excluded.is_headline,
			dimension_id = COALESCE(excluded.dimension_id, article_tags.dimension_id)`,
		tag.ArticleID, tag.TagType, tag.TagValue, tag.EntityID, tag.DimensionID,
		tag.MatchText, tag.MatchCount, boolToInt(tag.IsHeadline),
	)
	return err
}

// DeleteTagsForArticle removes every tag an article holds. Used on a
// content update, where the replacement tag set must reflect only the
// new body.
func (db *DB) DeleteTagsForArticle(articleID int64) error {
	_, err := db.conn.Exec(`DELETE FROM article_tags WHERE article_id = ?`, articleID)
	return err
}

// GetTagsForArticle returns all tags for an article, keywords last.
func (db *DB) GetTagsForArticle(articleID int64) ([]Tag, error) {
	rows, err := db.conn.Query(
		`SELECT article_id, tag_type, tag_value, entity_id, dimension_id, match_text, match_count, is_headline
		FROM article_tags WHERE article_id = ?
		ORDER BY tag_type = 'keyword', tag_type, tag_value`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		var headline int
		if err := rows.Scan(&t.ArticleID, &t.TagType, &t.TagValue, &t.EntityID,
			&t.DimensionID, &t.MatchText, &t.MatchCount, &headline); err != nil {
			return nil, err
		}
		t.IsHeadline = headline != 0
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
