package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ondaradio/onda/internal/ai"
	"github.com/ondaradio/onda/internal/database"
)

const maxBodyBytes = 2 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "version": s.version}
	if s.db != nil {
		if size, err := s.db.DatabaseSizeBytes(); err == nil {
			resp["db_bytes"] = size
		}
	}
	jsonResponse(w, resp)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.db.RecentAttempts(queryLimit(r, 50, 500))
	if err != nil {
		slog.Error("API: failed to list attempts", "error", err)
		jsonError(w, "Failed to list attempts", 500)
		return
	}
	jsonResponse(w, map[string]any{"attempts": attempts})
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// generationError maps pipeline errors onto HTTP statuses.
func generationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrMissingInput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ai.ErrNoCredentialConfigured):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, ai.ErrGenerationFailed):
		jsonError(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, database.ErrNotFound):
		jsonError(w, "Not found", http.StatusNotFound)
	default:
		slog.Error("API: request failed", "error", err)
		jsonError(w, "Internal error", http.StatusInternalServerError)
	}
}

func queryLimit(r *http.Request, def, ceiling int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > ceiling {
		limit = ceiling
	}
	return limit
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
