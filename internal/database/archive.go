package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ondaradio/onda/internal/models"
)

// sourcesMetadata is the JSON stored alongside an investigation report.
type sourcesMetadata struct {
	Images       []string `json:"images"`
	SourceImages []string `json:"source_images"`
}

// CreateInvestigation archives a research report and returns its new ID.
func (db *DB) CreateInvestigation(inv models.Investigation) (string, error) {
	meta, err := json.Marshal(sourcesMetadata{Images: inv.ImageURLs, SourceImages: inv.SourceImageURLs})
	if err != nil {
		return "", fmt.Errorf("marshal sources metadata: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(`
		INSERT INTO investigation (id, title, report_content, evidence_count, sources_metadata)
		VALUES (?, ?, ?, ?, ?)`,
		id, inv.Title, inv.Report, inv.EvidenceCount, string(meta))
	if err != nil {
		return "", fmt.Errorf("insert investigation: %w", err)
	}
	return id, nil
}

func (db *DB) GetInvestigation(id string) (models.Investigation, error) {
	var inv models.Investigation
	var meta, createdAt string
	err := db.conn.QueryRow(`
		SELECT id, title, report_content, evidence_count, sources_metadata, created_at
		FROM investigation WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Title, &inv.Report, &inv.EvidenceCount, &meta, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, ErrNotFound
	}
	if err != nil {
		return inv, err
	}

	var sm sourcesMetadata
	if err := json.Unmarshal([]byte(meta), &sm); err == nil {
		inv.ImageURLs = sm.Images
		inv.SourceImageURLs = sm.SourceImages
	}
	inv.CreatedAt, _ = parseTime(createdAt)
	return inv, nil
}

// ListInvestigations returns the newest investigations first.
func (db *DB) ListInvestigations(limit int) ([]models.InvestigationSummary, error) {
	rows, err := db.conn.Query(`
		SELECT i.id, i.title, COUNT(p.id), i.created_at
		FROM investigation i
		LEFT JOIN transmedia_pack p ON p.investigation_id = i.id
		GROUP BY i.id
		ORDER BY i.created_at DESC, i.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.InvestigationSummary
	for rows.Next() {
		var s models.InvestigationSummary
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Title, &s.PackCount, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = parseTime(createdAt)
		list = append(list, s)
	}
	return list, rows.Err()
}

// CreatePack archives a transmedia pack as a draft. investigationID may be empty.
func (db *DB) CreatePack(investigationID, title, content string) (string, error) {
	id := uuid.NewString()
	var invID any
	if investigationID != "" {
		invID = investigationID
	}
	_, err := db.conn.Exec(`
		INSERT INTO transmedia_pack (id, investigation_id, title, pack_content, status)
		VALUES (?, ?, ?, ?, ?)`,
		id, invID, title, content, models.PackStatusDraft)
	if err != nil {
		return "", fmt.Errorf("insert transmedia pack: %w", err)
	}
	return id, nil
}

func (db *DB) GetPack(id string) (models.TransmediaPack, error) {
	var p models.TransmediaPack
	var invID sql.NullString
	var createdAt, updatedAt string
	err := db.conn.QueryRow(`
		SELECT id, investigation_id, title, pack_content, status, created_at, updated_at
		FROM transmedia_pack WHERE id = ?`, id).
		Scan(&p.ID, &invID, &p.Title, &p.Content, &p.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.InvestigationID = invID.String
	p.CreatedAt, _ = parseTime(createdAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return p, nil
}

// ListPacks returns the packs generated from one investigation, newest first.
func (db *DB) ListPacks(investigationID string) ([]models.TransmediaPack, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, status, created_at, updated_at
		FROM transmedia_pack WHERE investigation_id = ?
		ORDER BY created_at DESC, rowid DESC`, investigationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []models.TransmediaPack
	for rows.Next() {
		p := models.TransmediaPack{InvestigationID: investigationID}
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = parseTime(createdAt)
		p.UpdatedAt, _ = parseTime(updatedAt)
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

// SetPackStatus moves a pack between draft and published.
func (db *DB) SetPackStatus(id, status string) error {
	if status != models.PackStatusDraft && status != models.PackStatusPublished {
		return fmt.Errorf("invalid pack status %q", status)
	}
	res, err := db.conn.Exec(`
		UPDATE transmedia_pack SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
