package database

import (
	"fmt"

	"github.com/ondaradio/onda/internal/models"
)

// LogAttempts stores the attempts of one cascade run in a single transaction.
func (db *DB) LogAttempts(attempts []models.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO generation_attempt (label, credential, model, outcome, error_class, status_code, error, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range attempts {
		if _, err := stmt.Exec(a.Label, a.Credential, a.Model, a.Outcome,
			a.ErrorClass, a.StatusCode, a.Error, a.LatencyMs); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
	}
	return tx.Commit()
}

// RecentAttempts returns the N most recent attempts.
func (db *DB) RecentAttempts(limit int) ([]models.Attempt, error) {
	rows, err := db.conn.Query(`
		SELECT id, label, credential, model, outcome, error_class, status_code, error, latency_ms, created_at
		FROM generation_attempt
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Label, &a.Credential, &a.Model, &a.Outcome,
			&a.ErrorClass, &a.StatusCode, &a.Error, &a.LatencyMs, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = parseTime(createdAt)
		list = append(list, a)
	}
	return list, rows.Err()
}

// CleanOldAttempts removes attempt rows older than the given number of days.
func (db *DB) CleanOldAttempts(days int) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM generation_attempt WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
