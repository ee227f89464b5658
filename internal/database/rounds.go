package database

import (
	"database/sql"
)

// InsertRound registers a competition round. Returns the ID, or 0 when the
// round number already exists.
func (db *DB) InsertRound(number int, startDate, endDate string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO rounds (number, start_date, end_date) VALUES (?, ?, ?)`,
		number, startDate, endDate,
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

// GetRoundByNumber returns a round by its number, or nil if not found.
func (db *DB) GetRoundByNumber(number int) (*Round, error) {
	row := db.conn.QueryRow(
		`SELECT id, number, start_date, end_date FROM rounds WHERE number = ?`, number,
	)
	return scanRound(row)
}

// GetRoundByID returns a round by ID, or nil if not found.
func (db *DB) GetRoundByID(roundID int64) (*Round, error) {
	row := db.conn.QueryRow(
		`SELECT id, number, start_date, end_date FROM rounds WHERE id = ?`, roundID,
	)
	return scanRound(row)
}

// GetCurrentRound returns the round containing today, falling back to the
// most recent past round, or nil when no round has started yet.
func (db *DB) GetCurrentRound() (*Round, error) {
	row := db.conn.QueryRow(
		`SELECT id, number, start_date, end_date FROM rounds
		WHERE start_date <= date('now') AND end_date >= date('now') LIMIT 1`,
	)
	r, err := scanRound(row)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r, nil
	}

	row = db.conn.QueryRow(
		`SELECT id, number, start_date, end_date FROM rounds
		WHERE start_date <= date('now')
		ORDER BY start_date DESC LIMIT 1`,
	)
	return scanRound(row)
}

// GetRounds returns all rounds in season order.
func (db *DB) GetRounds() ([]Round, error) {
	rows, err := db.conn.Query(
		`SELECT id, number, start_date, end_date FROM rounds ORDER BY number`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.ID, &r.Number, &r.StartDate, &r.EndDate); err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func scanRound(row *sql.Row) (*Round, error) {
	var r Round
	if err := row.Scan(&r.ID, &r.Number, &r.StartDate, &r.EndDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
