// Package headlines aggregates third-party news from NewsData.io and RSS feeds
// into a de-duplicated list the newsroom can pick investigation topics from.
package headlines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/similarity"
)

// Query narrows a fetch. Text wins over Category.
type Query struct {
	Text     string
	Category string
}

// Source is one upstream headline provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]models.Headline, error)
}

// Store persists headlines.
type Store interface {
	UpsertHeadlines(items []models.Headline) (int, error)
	ListHeadlines(category string, limit int) ([]models.Headline, error)
}

// Result summarizes one refresh.
type Result struct {
	Fetched  int `json:"fetched"`
	Kept     int `json:"kept"`
	Dropped  int `json:"dropped"`
	Inserted int `json:"inserted"`
}

// Aggregator merges sources and drops near-duplicate titles.
type Aggregator struct {
	sources []Source
	store   Store
	sim     *similarity.Checker
}

func NewAggregator(store Store, sim *similarity.Checker, sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, store: store, sim: sim}
}

// Search fetches live headlines from every source without storing them.
// It fails only when no source produced anything and at least one errored.
func (a *Aggregator) Search(ctx context.Context, q Query) ([]models.Headline, error) {
	fetched, err := a.fetchAll(ctx, q)
	if len(fetched) == 0 && err != nil {
		return nil, err
	}
	kept, _ := a.dedupe(nil, fetched)
	sortNewest(kept)
	return kept, nil
}

// Refresh fetches from every source, drops headlines too similar to stored
// or already accepted ones, and upserts the rest.
func (a *Aggregator) Refresh(ctx context.Context, q Query) (Result, error) {
	var res Result

	fetched, err := a.fetchAll(ctx, q)
	res.Fetched = len(fetched)
	if len(fetched) == 0 {
		return res, err
	}

	var existing []models.Headline
	if a.store != nil {
		existing, err = a.store.ListHeadlines("", 500)
		if err != nil {
			slog.Warn("Failed to load stored headlines for de-duplication", "error", err)
		}
	}

	kept, dropped := a.dedupe(existing, fetched)
	res.Kept = len(kept)
	res.Dropped = dropped

	if a.store == nil {
		return res, nil
	}
	inserted, err := a.store.UpsertHeadlines(kept)
	if err != nil {
		return res, fmt.Errorf("store headlines: %w", err)
	}
	res.Inserted = inserted

	slog.Info("Headlines refreshed", "fetched", res.Fetched, "kept", res.Kept,
		"dropped", res.Dropped, "new", res.Inserted)
	return res, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, q Query) ([]models.Headline, error) {
	var all []models.Headline
	var errs []error
	for _, src := range a.sources {
		items, err := src.Fetch(ctx, q)
		if err != nil {
			if errors.Is(err, ErrMissingKey) {
				slog.Debug("Headline source not configured", "source", src.Name())
			} else {
				slog.Warn("Headline source failed", "source", src.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		}
		all = append(all, items...)
	}
	return all, errors.Join(errs...)
}

func (a *Aggregator) dedupe(existing, fetched []models.Headline) ([]models.Headline, int) {
	set := a.sim.NewSet()
	for _, h := range existing {
		set.Seed(h.URL, h.Title)
	}

	kept := make([]models.Headline, 0, len(fetched))
	batch := make(map[string]bool, len(fetched))
	dropped := 0
	for _, h := range fetched {
		if h.URL == "" || h.Title == "" || batch[h.URL] {
			dropped++
			continue
		}
		batch[h.URL] = true
		if !set.Add(h.URL, h.Title) {
			dropped++
			continue
		}
		kept = append(kept, h)
	}
	return kept, dropped
}

func sortNewest(list []models.Headline) {
	sort.SliceStable(list, func(i, j int) bool {
		pi, pj := list[i].PublishedAt, list[j].PublishedAt
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})
}
