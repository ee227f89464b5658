package database

import (
	"database/sql"
	"encoding/json"
)

// InsertExtractionEvent stores a write-once extraction event keyed by its
// article hash. A duplicate hash is a no-op; returns the new event ID, or
// 0 when the event already existed.
func (db *DB) InsertExtractionEvent(ev ExtractionEvent) (int64, error) {
	data, err := json.Marshal(ev.ExtractedData)
	if err != nil {
		return 0, err
	}

	var entitiesJSON *string
	if ev.EntitiesMentioned != nil {
		raw, err := json.Marshal(ev.EntitiesMentioned)
		if err != nil {
			return 0, err
		}
		s := string(raw)
		entitiesJSON = &s
	}

	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO extraction_events
		(domain, schema_type, article_hash, headline, source, source_url,
		 extracted_data, entities_mentioned, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Domain, ev.SchemaType, ev.ArticleHash, ev.Headline, ev.Source, ev.SourceURL,
		string(data), entitiesJSON, ev.Confidence,
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// GetExtractionEventByHash returns an event by its idempotency key, or nil.
func (db *DB) GetExtractionEventByHash(articleHash string) (*ExtractionEvent, error) {
	row := db.conn.QueryRow(
		`SELECT id, domain, schema_type, article_hash, headline, source, source_url,
			extracted_data, entities_mentioned, confidence, created_at
		FROM extraction_events WHERE article_hash = ?`, articleHash,
	)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// GetEventsForEntity returns recent events mentioning an entity, newest first.
func (db *DB) GetEventsForEntity(entityID int64, limit int) ([]ExtractionEvent, error) {
	// entities_mentioned is a JSON array of IDs; match via json_each.
	rows, err := db.conn.Query(
		`SELECT ee.id, ee.domain, ee.schema_type, ee.article_hash, ee.headline,
			ee.source, ee.source_url, ee.extracted_data, ee.entities_mentioned,
			ee.confidence, ee.created_at
		FROM extraction_events ee, json_each(ee.entities_mentioned) je
		WHERE je.value = ?
		ORDER BY ee.created_at DESC, ee.id DESC LIMIT ?`, entityID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ExtractionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*ExtractionEvent, error) {
	var ev ExtractionEvent
	var dataJSON string
	var entitiesJSON *string
	if err := row.Scan(&ev.ID, &ev.Domain, &ev.SchemaType, &ev.ArticleHash,
		&ev.Headline, &ev.Source, &ev.SourceURL, &dataJSON, &entitiesJSON,
		&ev.Confidence, &ev.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dataJSON), &ev.ExtractedData); err != nil {
		ev.ExtractedData = nil
	}
	if entitiesJSON != nil {
		if err := json.Unmarshal([]byte(*entitiesJSON), &ev.EntitiesMentioned); err != nil {
			ev.EntitiesMentioned = nil
		}
	}
	return &ev, nil
}
