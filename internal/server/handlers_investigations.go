package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ondaradio/onda/internal/ai"
	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/scraper"
)

const maxArticleContextRunes = 4000

type investigationRequest struct {
	Title   string `json:"title"`
	Context string `json:"context"`
	URL     string `json:"url"`
}

type investigationResponse struct {
	Investigation models.Investigation `json:"investigation"`
	Source        string               `json:"source"`
	Model         string               `json:"model,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
	Archived      bool                 `json:"archived"`
}

func (s *Server) handleInvestigationCreate(w http.ResponseWriter, r *http.Request) {
	var req investigationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	topicContext := s.withArticle(r, req.Context, req.URL)

	report, err := s.pipeline.Research(r.Context(), req.Title, topicContext)
	if err != nil {
		generationError(w, err)
		return
	}

	inv := models.Investigation{
		Title:           strings.TrimSpace(req.Title),
		Report:          report.Text,
		EvidenceCount:   report.EvidenceCount,
		ImageURLs:       report.ImageURLs,
		SourceImageURLs: report.SourceImageURLs,
	}
	resp := investigationResponse{Source: report.Source, Model: report.Model, LastError: report.LastError}

	// Network error reports carry no findings worth keeping.
	if report.Source == ai.SourceError {
		resp.Investigation = inv
		jsonResponse(w, resp)
		return
	}

	id, err := s.db.CreateInvestigation(inv)
	if err != nil {
		slog.Error("API: failed to archive investigation", "title", inv.Title, "error", err)
		jsonError(w, "Failed to archive investigation", 500)
		return
	}
	stored, err := s.db.GetInvestigation(id)
	if err != nil {
		generationError(w, err)
		return
	}
	resp.Investigation = stored
	resp.Archived = true
	jsonStatus(w, http.StatusCreated, resp)
}

// withArticle appends the readable text of a reference article to the
// analyst's context. Extraction failures only cost the extra context.
func (s *Server) withArticle(r *http.Request, topicContext, articleURL string) string {
	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" || s.extractor == nil {
		return topicContext
	}

	article, err := s.extractor.Extract(r.Context(), articleURL)
	if err != nil {
		slog.Warn("Reference article extraction failed", "url", articleURL, "error", err)
		return topicContext
	}

	article.URL = articleURL
	return scraper.AppendReference(topicContext, article, maxArticleContextRunes)
}

func (s *Server) handleInvestigationList(w http.ResponseWriter, r *http.Request) {
	list, err := s.db.ListInvestigations(queryLimit(r, 20, 200))
	if err != nil {
		slog.Error("API: failed to list investigations", "error", err)
		jsonError(w, "Failed to list investigations", 500)
		return
	}
	if list == nil {
		list = []models.InvestigationSummary{}
	}
	jsonResponse(w, map[string]any{"investigations": list})
}

func (s *Server) handleInvestigationGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	inv, err := s.db.GetInvestigation(id)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Investigation not found", 404)
		return
	}
	if err != nil {
		generationError(w, err)
		return
	}

	packs, err := s.db.ListPacks(id)
	if err != nil {
		slog.Error("API: failed to list packs", "investigation", id, "error", err)
		jsonError(w, "Failed to list packs", 500)
		return
	}
	if packs == nil {
		packs = []models.TransmediaPack{}
	}
	jsonResponse(w, map[string]any{"investigation": inv, "packs": packs})
}

func (s *Server) handleInvestigationPack(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	inv, err := s.db.GetInvestigation(id)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Investigation not found", 404)
		return
	}
	if err != nil {
		generationError(w, err)
		return
	}
	s.createPack(w, r, inv.ID, inv.Report, inv.Title)
}
