package database

import (
	"database/sql"
	"fmt"

	"github.com/ondaradio/onda/internal/models"
)

// UpsertHeadlines inserts headlines keyed by URL, refreshing title and metadata
// of ones already stored. It returns how many rows were new.
func (db *DB) UpsertHeadlines(items []models.Headline) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, h := range items {
		if h.URL == "" || h.Title == "" {
			continue
		}
		var published any
		if h.PublishedAt != nil {
			published = formatTime(*h.PublishedAt)
		}

		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM headline WHERE url = ?`, h.URL).Scan(&exists); err != nil {
			return 0, err
		}

		_, err := tx.Exec(`
			INSERT INTO headline (title, description, url, image_url, source, category, country, published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				image_url = excluded.image_url,
				category = excluded.category`,
			h.Title, h.Description, h.URL, h.ImageURL, h.Source, h.Category, h.Country, published)
		if err != nil {
			return 0, fmt.Errorf("upsert headline %s: %w", h.URL, err)
		}
		if exists == 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// ListHeadlines returns stored headlines newest first, optionally filtered by category.
func (db *DB) ListHeadlines(category string, limit int) ([]models.Headline, error) {
	query := `
		SELECT id, title, description, url, image_url, source, category, country, published_at, created_at
		FROM headline`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY COALESCE(published_at, created_at) DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Headline
	for rows.Next() {
		var h models.Headline
		var published sql.NullString
		var createdAt string
		if err := rows.Scan(&h.ID, &h.Title, &h.Description, &h.URL, &h.ImageURL,
			&h.Source, &h.Category, &h.Country, &published, &createdAt); err != nil {
			return nil, err
		}
		if published.Valid {
			if t, err := parseTime(published.String); err == nil {
				h.PublishedAt = &t
			}
		}
		h.CreatedAt, _ = parseTime(createdAt)
		list = append(list, h)
	}
	return list, rows.Err()
}

// CleanOldHeadlines removes headlines collected more than the given number of days ago.
func (db *DB) CleanOldHeadlines(days int) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM headline WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
