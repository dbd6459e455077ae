package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ondaradio/onda/internal/headlines"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/scheduler"
)

const trendHeadlineCount = 10

// handleHeadlines serves stored headlines, or a live search when q is given
// or live=1 is set.
func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	q := headlines.Query{
		Text:     strings.TrimSpace(r.URL.Query().Get("q")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	limit := queryLimit(r, 30, 200)

	if q.Text != "" || r.URL.Query().Get("live") == "1" {
		if s.headlines == nil {
			jsonError(w, "Live headlines not configured", http.StatusServiceUnavailable)
			return
		}
		list, err := s.headlines.Search(r.Context(), q)
		if err != nil {
			slog.Warn("API: live headline search failed", "query", q.Text, "error", err)
			jsonError(w, "Headline providers unavailable", http.StatusBadGateway)
			return
		}
		if len(list) > limit {
			list = list[:limit]
		}
		jsonResponse(w, map[string]any{"headlines": nonNil(list), "live": true})
		return
	}

	category := q.Category
	if category == "general" {
		category = ""
	}
	list, err := s.db.ListHeadlines(category, limit)
	if err != nil {
		slog.Error("API: failed to list headlines", "error", err)
		jsonError(w, "Failed to list headlines", 500)
		return
	}
	jsonResponse(w, map[string]any{"headlines": nonNil(list), "live": false})
}

func (s *Server) handleHeadlinesRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		jsonError(w, "Headline refresh not configured", http.StatusServiceUnavailable)
		return
	}
	res, err := s.refresher.RefreshNow(r.Context(), headlines.Query{})
	if errors.Is(err, scheduler.ErrBusy) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		slog.Warn("API: headline refresh failed", "error", err)
		jsonError(w, "Headline refresh failed", http.StatusBadGateway)
		return
	}
	jsonResponse(w, res)
}

// handleTrends analyzes the given titles, or the latest stored headlines
// when none are sent.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Titles []string `json:"titles"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Titles) == 0 {
		stored, err := s.db.ListHeadlines("", trendHeadlineCount)
		if err != nil {
			slog.Error("API: failed to load headlines for trends", "error", err)
			jsonError(w, "Failed to load headlines", 500)
			return
		}
		for _, h := range stored {
			req.Titles = append(req.Titles, h.Title)
		}
	}

	analysis, err := s.pipeline.AnalyzeTrends(r.Context(), req.Titles)
	if err != nil {
		generationError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"analysis": analysis, "titles": len(req.Titles)})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic    string `json:"topic"`
		Platform string `json:"platform"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := s.pipeline.SocialPost(r.Context(), req.Topic, req.Platform)
	if err != nil {
		generationError(w, err)
		return
	}
	jsonResponse(w, map[string]string{"platform": req.Platform, "text": text})
}

func nonNil(list []models.Headline) []models.Headline {
	if list == nil {
		return []models.Headline{}
	}
	return list
}
