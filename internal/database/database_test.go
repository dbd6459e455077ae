package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ondaradio/onda/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "onda.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onda.db")
	for i := 0; i < 2; i++ {
		db, err := New(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetSetting("key1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSetting(missing) error = %v, want ErrNotFound", err)
	}

	if err := db.SetSetting("key1", "first"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting("key1", "second"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetSetting("key1")
	if err != nil || got != "second" {
		t.Errorf("GetSetting(key1) = %q, %v; want second", got, err)
	}

	// A fresh handle reads through the cache from disk.
	reopened, err := New(db.path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got, _ := reopened.GetSetting("key1"); got != "second" {
		t.Errorf("reopened GetSetting(key1) = %q, want second", got)
	}
}

func TestInvestigationAndPacks(t *testing.T) {
	db := newTestDB(t)

	id, err := db.CreateInvestigation(models.Investigation{
		Title:           "Corte de agua en el norte",
		Report:          "# Informe",
		EvidenceCount:   2,
		ImageURLs:       []string{"https://images.weserv.nl/?url=a"},
		SourceImageURLs: []string{"https://example.com/a.jpg"},
	})
	if err != nil {
		t.Fatalf("CreateInvestigation() error = %v", err)
	}

	inv, err := db.GetInvestigation(id)
	if err != nil {
		t.Fatalf("GetInvestigation() error = %v", err)
	}
	if inv.Title != "Corte de agua en el norte" || inv.EvidenceCount != 2 {
		t.Errorf("GetInvestigation() = %+v", inv)
	}
	if len(inv.SourceImageURLs) != 1 || inv.SourceImageURLs[0] != "https://example.com/a.jpg" {
		t.Errorf("SourceImageURLs = %v", inv.SourceImageURLs)
	}

	packID, err := db.CreatePack(id, inv.Title, "### A. TITULAR")
	if err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}
	pack, err := db.GetPack(packID)
	if err != nil {
		t.Fatal(err)
	}
	if pack.Status != models.PackStatusDraft || pack.InvestigationID != id {
		t.Errorf("GetPack() = %+v, want draft linked to %s", pack, id)
	}

	if err := db.SetPackStatus(packID, models.PackStatusPublished); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPackStatus(packID, "archived"); err == nil {
		t.Error("SetPackStatus(archived) error = nil, want invalid status")
	}
	if err := db.SetPackStatus("missing", models.PackStatusDraft); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPackStatus(missing) error = %v, want ErrNotFound", err)
	}

	packs, err := db.ListPacks(id)
	if err != nil || len(packs) != 1 || packs[0].Status != models.PackStatusPublished {
		t.Errorf("ListPacks() = %+v, %v", packs, err)
	}

	list, err := db.ListInvestigations(10)
	if err != nil || len(list) != 1 || list[0].PackCount != 1 {
		t.Errorf("ListInvestigations() = %+v, %v", list, err)
	}

	if _, err := db.GetInvestigation("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetInvestigation(nope) error = %v, want ErrNotFound", err)
	}
}

func TestStandalonePack(t *testing.T) {
	db := newTestDB(t)
	id, err := db.CreatePack("", "Sin expediente", "contenido")
	if err != nil {
		t.Fatalf("CreatePack() error = %v", err)
	}
	p, err := db.GetPack(id)
	if err != nil || p.InvestigationID != "" {
		t.Errorf("GetPack() = %+v, %v", p, err)
	}
}

func TestAttempts(t *testing.T) {
	db := newTestDB(t)
	attempts := []models.Attempt{
		{Label: "ONDA-INTEL", Credential: "AIzaSy****", Model: "gemini-pro", Outcome: models.OutcomeFailure, ErrorClass: "QuotaExceeded", StatusCode: 429},
		{Label: "ONDA-INTEL", Credential: "AIzaXy****", Model: "gemini-pro", Outcome: models.OutcomeSuccess, LatencyMs: 800},
	}
	if err := db.LogAttempts(attempts); err != nil {
		t.Fatalf("LogAttempts() error = %v", err)
	}
	got, err := db.RecentAttempts(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentAttempts() len = %d, want 2", len(got))
	}
	if got[0].Outcome != models.OutcomeSuccess || got[1].StatusCode != 429 {
		t.Errorf("RecentAttempts() order = %+v", got)
	}
	if n, err := db.CleanOldAttempts(1); err != nil || n != 0 {
		t.Errorf("CleanOldAttempts(1) = %d, %v; want 0", n, err)
	}
}

func TestUpsertHeadlines(t *testing.T) {
	db := newTestDB(t)
	pub := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []models.Headline{
		{Title: "Racionamiento en Bogotá", URL: "https://news.example/a", Source: "newsdata", Category: "general", PublishedAt: &pub},
		{Title: "Sin URL", URL: ""},
		{Title: "Tarifas de transporte", URL: "https://news.example/b", Source: "rss", Category: "business"},
	}
	n, err := db.UpsertHeadlines(items)
	if err != nil || n != 2 {
		t.Fatalf("UpsertHeadlines() = %d, %v; want 2", n, err)
	}

	items[0].Title = "Racionamiento en Bogotá (actualizado)"
	n, err = db.UpsertHeadlines(items[:1])
	if err != nil || n != 0 {
		t.Fatalf("second UpsertHeadlines() = %d, %v; want 0 new", n, err)
	}

	all, err := db.ListHeadlines("", 10)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListHeadlines() = %d items, %v", len(all), err)
	}
	general, _ := db.ListHeadlines("general", 10)
	if len(general) != 1 || general[0].Title != "Racionamiento en Bogotá (actualizado)" {
		t.Errorf("ListHeadlines(general) = %+v", general)
	}
	if general[0].PublishedAt == nil || !general[0].PublishedAt.Equal(pub) {
		t.Errorf("PublishedAt = %v, want %v", general[0].PublishedAt, pub)
	}
}
