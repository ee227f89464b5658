package database

import (
	"database/sql"
	"encoding/json"
)

// CreateEntity registers a new entity. Returns the ID on success, 0 if an
// entity with the same (domain, type, canonical name) already exists.
func (db *DB) CreateEntity(domain, entityType, canonicalName string, externalID *string, attributes map[string]any) (int64, error) {
	var attrJSON *string
	if attributes != nil {
		data, err := json.Marshal(attributes)
		if err != nil {
			return 0, err
		}
		s := string(data)
		attrJSON = &s
	}

	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO entities (domain, entity_type, canonical_name, external_id, attributes)
		VALUES (?, ?, ?, ?, ?)`,
		domain, entityType, canonicalName, externalID, attrJSON,
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

// GetEntityByID returns an entity by ID, or nil if not found.
func (db *DB) GetEntityByID(entityID int64) (*Entity, error) {
	row := db.conn.QueryRow(
		`SELECT id, domain, entity_type, canonical_name, external_id, attributes, created_at
		FROM entities WHERE id = ?`, entityID,
	)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntities returns all entities for a domain, optionally filtered by type.
func (db *DB) GetEntities(domain string, entityType *string) ([]Entity, error) {
	query := `SELECT id, domain, entity_type, canonical_name, external_id, attributes, created_at
		FROM entities WHERE domain = ?`
	args := []any{domain}
	if entityType != nil {
		query += " AND entity_type = ?"
		args = append(args, *entityType)
	}
	query += " ORDER BY canonical_name"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var attrJSON *string
		if err := rows.Scan(&e.ID, &e.Domain, &e.EntityType, &e.CanonicalName,
			&e.ExternalID, &attrJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		decodeAttributes(&e, attrJSON)
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// SearchEntities finds entities whose canonical name or alias contains the
// query substring (case-insensitive). Canonical matches sort before alias
// matches; within each group the listing is ordered by name length then ID
// so results are deterministic.
func (db *DB) SearchEntities(query, domain string, limit int) ([]EntityMatch, error) {
	sqlQuery := `SELECT * FROM (
		SELECT e.id, e.domain, e.entity_type, e.canonical_name, e.external_id, e.attributes, e.created_at,
			'canonical' AS match_type
		FROM entities e
		WHERE instr(lower(e.canonical_name), lower(?)) > 0`
	args := []any{query}
	if domain != "" {
		sqlQuery += " AND e.domain = ?"
		args = append(args, domain)
	}
	sqlQuery += `
		UNION
		SELECT e.id, e.domain, e.entity_type, e.canonical_name, e.external_id, e.attributes, e.created_at,
			'alias' AS match_type
		FROM entities e
		JOIN entity_aliases a ON e.id = a.entity_id
		WHERE instr(lower(a.alias), lower(?)) > 0`
	args = append(args, query)
	if domain != "" {
		sqlQuery += " AND e.domain = ?"
		args = append(args, domain)
	}
	sqlQuery += `
	) ORDER BY match_type = 'alias', length(canonical_name), id LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []EntityMatch
	for rows.Next() {
		var m EntityMatch
		var attrJSON *string
		if err := rows.Scan(&m.ID, &m.Domain, &m.EntityType, &m.CanonicalName,
			&m.ExternalID, &attrJSON, &m.CreatedAt, &m.MatchType); err != nil {
			return nil, err
		}
		decodeAttributes(&m.Entity, attrJSON)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// AddAlias records an alternate name for an entity. Duplicate aliases for
// the same entity are ignored.
func (db *DB) AddAlias(entityID int64, alias, source string, confidence float64) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO entity_aliases (entity_id, alias, source, confidence)
		VALUES (?, ?, ?, ?)`,
		entityID, alias, source, confidence,
	)
	return err
}

// GetAliases returns all aliases for an entity.
func (db *DB) GetAliases(entityID int64) ([]Alias, error) {
	rows, err := db.conn.Query(
		`SELECT id, entity_id, alias, source, confidence
		FROM entity_aliases WHERE entity_id = ? ORDER BY alias`, entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Alias, &a.Source, &a.Confidence); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// GetEntityPatternRows returns every (entity, name) pair the tagger should
// match: canonical names first, then aliases mapped to their canonical name.
func (db *DB) GetEntityPatternRows(domain string) ([]PatternRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, canonical_name AS name, canonical_name, entity_type
		FROM entities WHERE domain = ?
		UNION ALL
		SELECT e.id, a.alias AS name, e.canonical_name, e.entity_type
		FROM entity_aliases a
		JOIN entities e ON a.entity_id = e.id
		WHERE e.domain = ?
		ORDER BY id, name`, domain, domain,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []PatternRow
	for rows.Next() {
		var p PatternRow
		if err := rows.Scan(&p.EntityID, &p.Name, &p.CanonicalName, &p.EntityType); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// PatternRow is one matchable name bound to its entity.
type PatternRow struct {
	EntityID      int64
	Name          string
	CanonicalName string
	EntityType    string
}

func scanEntity(row *sql.Row) (*Entity, error) {
	var e Entity
	var attrJSON *string
	if err := row.Scan(&e.ID, &e.Domain, &e.EntityType, &e.CanonicalName,
		&e.ExternalID, &attrJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	decodeAttributes(&e, attrJSON)
	return &e, nil
}

func decodeAttributes(e *Entity, attrJSON *string) {
	if attrJSON == nil {
		return
	}
	if err := json.Unmarshal([]byte(*attrJSON), &e.Attributes); err != nil {
		e.Attributes = nil
	}
}
