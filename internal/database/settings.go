package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row or setting does not exist.
var ErrNotFound = errors.New("not found")

// loadSettingsCache populates the in-memory settings cache from the database.
func (db *DB) loadSettingsCache() error {
	rows, err := db.conn.Query(`SELECT key, value FROM system_setting`)
	if err != nil {
		return err
	}
	defer rows.Close()

	db.cacheMu.Lock()
	defer db.cacheMu.Unlock()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		db.settings[key] = value
	}
	return rows.Err()
}

// GetSetting returns a setting value, or ErrNotFound when the key was never written.
func (db *DB) GetSetting(key string) (string, error) {
	db.cacheMu.RLock()
	v, ok := db.settings[key]
	db.cacheMu.RUnlock()
	if ok {
		return v, nil
	}

	var value string
	err := db.conn.QueryRow(`SELECT value FROM system_setting WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	db.cacheMu.Lock()
	db.settings[key] = value
	db.cacheMu.Unlock()
	return value, nil
}

func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO system_setting (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	db.cacheMu.Lock()
	db.settings[key] = value
	db.cacheMu.Unlock()
	return nil
}
