package database

import (
	"database/sql"
	"fmt"
)

const articleColumns = `id, url_hash, content_hash, url, title, body, source, published_at,
	triage_status, analysis_status, indexed_at, scraped_at, expires_at`

// GetLiveArticleByURLHash returns the non-expired article for a URL hash,
// or nil if none exists. At most one live row per URL hash is maintained
// by the ingestion gate.
func (db *DB) GetLiveArticleByURLHash(urlHash string) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT `+articleColumns+` FROM articles
		WHERE url_hash = ? AND expires_at > datetime('now')
		ORDER BY scraped_at DESC LIMIT 1`, urlHash,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// InsertArticle stores a new article with an expiry retentionDays from now.
func (db *DB) InsertArticle(urlHash, contentHash, url, title, body string, source, publishedAt *string, retentionDays int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO articles (url_hash, content_hash, url, title, body, source, published_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now', ?))`,
		urlHash, contentHash, url, title, body, source, publishedAt,
		fmt.Sprintf("%+d days", retentionDays),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ReplaceArticleContent updates an article in place after its URL reappeared
// with changed content: new body and hash, both statuses back to pending,
// index timestamp cleared, scrape and expiry refreshed.
func (db *DB) ReplaceArticleContent(articleID int64, body, contentHash string, retentionDays int) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET body = ?, content_hash = ?,
			triage_status = 'pending', analysis_status = 'pending',
			indexed_at = NULL,
			scraped_at = datetime('now'), expires_at = datetime('now', ?)
		WHERE id = ?`,
		body, contentHash, fmt.Sprintf("%+d days", retentionDays), articleID,
	)
	return err
}

// GetArticleByID returns a single article by ID, or nil if not found.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, articleID,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetPendingTriageArticles returns up to limit articles awaiting triage,
// oldest scraped first.
func (db *DB) GetPendingTriageArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		WHERE triage_status = 'pending'
		ORDER BY scraped_at, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetUnindexedArticles returns up to limit articles the tagger has not
// processed yet, oldest scraped first.
func (db *DB) GetUnindexedArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		WHERE indexed_at IS NULL
		ORDER BY scraped_at, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// MarkArticleIndexed stamps the article as processed by the tagger.
func (db *DB) MarkArticleIndexed(articleID int64) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET indexed_at = datetime('now') WHERE id = ?`, articleID,
	)
	return err
}

// MarkTriageCompleted flips the article's triage status.
func (db *DB) MarkTriageCompleted(articleID int64) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET triage_status = 'completed' WHERE id = ?`, articleID,
	)
	return err
}

// DeleteExpiredArticles removes all articles past their expiry. Tags and
// entity mentions cascade. Returns the number of articles deleted.
func (db *DB) DeleteExpiredArticles() (int, error) {
	result, err := db.conn.Exec(
		`DELETE FROM articles WHERE expires_at < datetime('now')`,
	)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	return int(deleted), err
}

// GetArticlesForEntityDimension returns the round's articles tagged with
// both the entity and the dimension, newest published first.
func (db *DB) GetArticlesForEntityDimension(entityID, dimensionID, roundID int64) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT `+prefixedArticleColumns("a")+`
		FROM articles a
		JOIN article_tags t_entity ON a.id = t_entity.article_id
		JOIN article_tags t_dim ON a.id = t_dim.article_id
		JOIN rounds r ON r.id = ?
		WHERE t_entity.entity_id = ? AND t_entity.tag_type != 'keyword'
		  AND t_dim.dimension_id = ?
		  AND date(a.scraped_at) >= r.start_date AND date(a.scraped_at) <= r.end_date
		ORDER BY a.published_at DESC, a.id DESC`,
		roundID, entityID, dimensionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

func prefixedArticleColumns(alias string) string {
	return alias + `.id, ` + alias + `.url_hash, ` + alias + `.content_hash, ` +
		alias + `.url, ` + alias + `.title, ` + alias + `.body, ` + alias + `.source, ` +
		alias + `.published_at, ` + alias + `.triage_status, ` + alias + `.analysis_status, ` +
		alias + `.indexed_at, ` + alias + `.scraped_at, ` + alias + `.expires_at`
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.URLHash, &a.ContentHash, &a.URL, &a.Title, &a.Body,
			&a.Source, &a.PublishedAt, &a.TriageStatus, &a.AnalysisStatus,
			&a.IndexedAt, &a.ScrapedAt, &a.ExpiresAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	if err := row.Scan(&a.ID, &a.URLHash, &a.ContentHash, &a.URL, &a.Title, &a.Body,
		&a.Source, &a.PublishedAt, &a.TriageStatus, &a.AnalysisStatus,
		&a.IndexedAt, &a.ScrapedAt, &a.ExpiresAt); err != nil {
		return nil, err
	}
	return &a, nil
}
