package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ondaradio/onda/internal/ai"
	"github.com/ondaradio/onda/internal/config"
	"github.com/ondaradio/onda/internal/cooldown"
	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/evidence"
	"github.com/ondaradio/onda/internal/headlines"
	"github.com/ondaradio/onda/internal/scheduler"
	"github.com/ondaradio/onda/internal/scraper"
	"github.com/ondaradio/onda/internal/similarity"
	"github.com/ondaradio/onda/internal/vault"
)

// app holds every long-lived service built from one config.
type app struct {
	cfg       config.Config
	db        *database.DB
	vault     *vault.Vault
	ai        *ai.Client
	scraper   *scraper.Scraper
	headlines *headlines.Aggregator
	sched     *scheduler.Scheduler
	closers   []func() error
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: db, closers: []func() error{db.Close}}
	slog.Debug("Database initialized", "path", cfg.Database.Path)

	var vaultOpts []vault.Option
	if cfg.Vault.Secret != "" {
		sealer, err := vault.NewSealer(cfg.Vault.Secret)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("vault secret: %w", err)
		}
		vaultOpts = append(vaultOpts, vault.WithSealer(sealer))
	}
	a.vault = vault.New(db, cfg.AI.DefaultAPIKey, vaultOpts...)

	gemini := ai.NewGeminiProvider(seconds(cfg.AI.CallTimeoutSeconds))
	cascadeOpts := []ai.CascadeOption{ai.WithDeadline(seconds(cfg.AI.CascadeTimeoutSeconds))}
	if cd := a.buildCooldown(ctx); cd != nil {
		cascadeOpts = append(cascadeOpts, ai.WithCooldown(cd))
	}
	cascade := ai.NewCascade(gemini, a.vault, cfg.AI.Models, cascadeOpts...)

	a.scraper = scraper.New()

	var evidenceOpts []evidence.Option
	if cfg.Evidence.DiscoverImages {
		evidenceOpts = append(evidenceOpts, evidence.WithImageFinder(a.scraper))
	}
	gatherer := evidence.New(cfg.Evidence, evidenceOpts...)

	a.ai = ai.NewClient(cascade, ai.NewLocalProvider(cfg.Local.Host, cfg.Local.Model), gatherer,
		ai.WithRecorder(db),
		ai.WithDiagnostics(a.vault, gemini, cfg.AI.DiagnosticModel),
		ai.WithLocalModels(cfg.Local.Model, cfg.Local.SocialModel),
		ai.WithLocalTimeouts(seconds(cfg.Local.ReportTimeoutSeconds), seconds(cfg.Local.PackTimeoutSeconds)),
		ai.WithAssetBaseURL(cfg.AI.AssetBaseURL),
	)

	sim := similarity.New(cfg.News.SimilarityThreshold, cfg.News.NGramSize)
	a.headlines = headlines.NewAggregator(db, sim,
		headlines.NewNewsData(cfg.News, nil),
		headlines.NewFeeds(cfg.News.Feeds, a.scraper, nil),
	)
	a.sched = scheduler.New(db, a.headlines,
		time.Duration(cfg.News.RefreshMinutes)*time.Minute, cfg.News.RetentionDays)

	return a, nil
}

// buildCooldown returns nil when the skip-list is off. A Redis backend that
// cannot be reached degrades to the in-memory one.
func (a *app) buildCooldown(ctx context.Context) ai.Cooldown {
	ttl := seconds(a.cfg.Cooldown.TTLSeconds)
	switch strings.ToLower(a.cfg.Cooldown.Backend) {
	case "off", "none", "":
		return nil
	case "redis":
		r, err := cooldown.NewRedis(ctx, a.cfg.Cooldown.RedisURL, ttl)
		if err == nil {
			a.closers = append(a.closers, r.Close)
			slog.Debug("Credential cooldown backed by Redis")
			return r
		}
		slog.Warn("Redis cooldown unavailable, using memory", "error", err)
	}
	return cooldown.NewMemory(ttl)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}
