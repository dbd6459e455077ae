package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/transmedia"
)

type packResponse struct {
	Pack      models.TransmediaPack `json:"pack"`
	Parsed    transmedia.Package    `json:"parsed"`
	Source    string                `json:"source,omitempty"`
	Model     string                `json:"model,omitempty"`
	LastError string                `json:"last_error,omitempty"`
}

func (s *Server) handlePackCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Report string `json:"report"`
		Title  string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.createPack(w, r, "", req.Report, req.Title)
}

func (s *Server) createPack(w http.ResponseWriter, r *http.Request, investigationID, report, title string) {
	pack, err := s.pipeline.Transmedia(r.Context(), report, title)
	if err != nil {
		generationError(w, err)
		return
	}

	title = strings.TrimSpace(title)
	id, err := s.db.CreatePack(investigationID, title, pack.Text)
	if err != nil {
		slog.Error("API: failed to archive pack", "title", title, "error", err)
		jsonError(w, "Failed to archive pack", 500)
		return
	}
	stored, err := s.db.GetPack(id)
	if err != nil {
		generationError(w, err)
		return
	}

	jsonStatus(w, http.StatusCreated, packResponse{
		Pack:      stored,
		Parsed:    transmedia.Parse(stored.Content, title),
		Source:    pack.Source,
		Model:     pack.Model,
		LastError: pack.LastError,
	})
}

func (s *Server) handlePackGet(w http.ResponseWriter, r *http.Request) {
	pack, err := s.db.GetPack(strings.TrimSpace(chi.URLParam(r, "id")))
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Pack not found", 404)
		return
	}
	if err != nil {
		generationError(w, err)
		return
	}
	jsonResponse(w, packResponse{Pack: pack, Parsed: transmedia.Parse(pack.Content, pack.Title)})
}

func (s *Server) handlePackStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status != models.PackStatusDraft && req.Status != models.PackStatusPublished {
		jsonError(w, "status must be draft or published", 400)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.db.SetPackStatus(id, req.Status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			jsonError(w, "Pack not found", 404)
			return
		}
		generationError(w, err)
		return
	}
	jsonResponse(w, map[string]string{"id": id, "status": req.Status})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Title   string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	jsonResponse(w, transmedia.Parse(req.Content, req.Title))
}
