package database

// GetActiveDimensions returns all active dimensions ordered by tier then ID.
func (db *DB) GetActiveDimensions() ([]Dimension, error) {
	rows, err := db.conn.Query(
		`SELECT id, code, name, tier, description, prompt_guidance, is_active
		FROM dimensions WHERE is_active = 1 ORDER BY tier, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dims []Dimension
	for rows.Next() {
		var d Dimension
		var active int
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.Tier, &d.Description,
			&d.PromptGuidance, &active); err != nil {
			return nil, err
		}
		d.IsActive = active != 0
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

// GetDimensionIDMap returns the active dimension code -> id mapping used by
// the tagger's keyword table.
func (db *DB) GetDimensionIDMap() (map[string]int64, error) {
	rows, err := db.conn.Query(
		`SELECT id, code FROM dimensions WHERE is_active = 1`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		ids[code] = id
	}
	return ids, rows.Err()
}
