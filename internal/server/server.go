package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ondaradio/onda/internal/ai"
	"github.com/ondaradio/onda/internal/config"
	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/headlines"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/scraper"
)

// Pipeline is the generation surface. ai.Client satisfies it.
type Pipeline interface {
	Research(ctx context.Context, title, topicContext string) (ai.GeneratedReport, error)
	Transmedia(ctx context.Context, report, title string) (ai.GeneratedPack, error)
	AnalyzeTrends(ctx context.Context, titles []string) (string, error)
	SocialPost(ctx context.Context, topic, platform string) (string, error)
	DiagnoseCredentials(ctx context.Context) ([]models.CredentialDiagnosis, error)
}

// Vault is the credential store surface. vault.Vault satisfies it.
type Vault interface {
	Entries(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, values map[string]string) error
}

// HeadlineSearcher runs live headline queries. headlines.Aggregator satisfies it.
type HeadlineSearcher interface {
	Search(ctx context.Context, q headlines.Query) ([]models.Headline, error)
}

// HeadlineRefresher triggers a stored refresh. scheduler.Scheduler satisfies it.
type HeadlineRefresher interface {
	RefreshNow(ctx context.Context, q headlines.Query) (headlines.Result, error)
}

// Extractor pulls readable text from an article URL. scraper.Scraper satisfies it.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (scraper.Article, error)
}

// Deps are the collaborators the handlers call into. Headlines, Refresher
// and Extractor may be nil; their routes then answer 503.
type Deps struct {
	DB        *database.DB
	Pipeline  Pipeline
	Vault     Vault
	Headlines HeadlineSearcher
	Refresher HeadlineRefresher
	Extractor Extractor
}

type Server struct {
	cfg       config.Config
	db        *database.DB
	pipeline  Pipeline
	vault     Vault
	headlines HeadlineSearcher
	refresher HeadlineRefresher
	extractor Extractor
	version   string
	httpSrv   *http.Server
}

func New(cfg config.Config, deps Deps, version string) *Server {
	return &Server{
		cfg:       cfg,
		db:        deps.DB,
		pipeline:  deps.Pipeline,
		vault:     deps.Vault,
		headlines: deps.Headlines,
		refresher: deps.Refresher,
		extractor: deps.Extractor,
		version:   version,
	}
}

// Start sets up routes and starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	slog.Info("Starting server", "addr", addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router builds the full handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Post("/investigations", s.handleInvestigationCreate)
		r.Get("/investigations", s.handleInvestigationList)
		r.Get("/investigations/{id}", s.handleInvestigationGet)
		r.Post("/investigations/{id}/packs", s.handleInvestigationPack)

		r.Post("/packs", s.handlePackCreate)
		r.Get("/packs/{id}", s.handlePackGet)
		r.Patch("/packs/{id}/status", s.handlePackStatus)
		r.Post("/parse", s.handleParse)

		r.Get("/vault", s.handleVaultGet)
		r.Put("/vault", s.handleVaultUpdate)
		r.Post("/vault/diagnose", s.handleVaultDiagnose)

		r.Get("/headlines", s.handleHeadlines)
		r.Post("/headlines/refresh", s.handleHeadlinesRefresh)
		r.Post("/trends", s.handleTrends)
		r.Post("/posts", s.handlePost)

		r.Get("/attempts", s.handleAttempts)
	})

	return r
}
