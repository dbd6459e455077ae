package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ondaradio/onda/internal/vault"
)

func (s *Server) handleVaultGet(w http.ResponseWriter, r *http.Request) {
	entries, err := s.vault.Entries(r.Context())
	if err != nil {
		slog.Error("API: failed to read vault", "error", err)
		jsonError(w, "Failed to read vault", 500)
		return
	}
	jsonResponse(w, map[string]any{"slots": entries})
}

// handleVaultUpdate writes only the slots present in the body; an empty
// string clears a slot.
func (s *Server) handleVaultUpdate(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if !decodeJSON(w, r, &values) {
		return
	}
	if len(values) == 0 {
		jsonError(w, "No slots given", http.StatusBadRequest)
		return
	}

	if err := s.vault.Update(r.Context(), values); err != nil {
		if errors.Is(err, vault.ErrUnknownSlot) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("API: failed to update vault", "error", err)
		jsonError(w, "Failed to update vault", 500)
		return
	}
	slog.Info("Vault updated", "slots", len(values))

	entries, err := s.vault.Entries(r.Context())
	if err != nil {
		jsonError(w, "Failed to read vault", 500)
		return
	}
	jsonResponse(w, map[string]any{"slots": entries})
}

func (s *Server) handleVaultDiagnose(w http.ResponseWriter, r *http.Request) {
	results, err := s.pipeline.DiagnoseCredentials(r.Context())
	if err != nil {
		generationError(w, err)
		return
	}
	ok := 0
	for _, d := range results {
		if d.Status == "ok" {
			ok++
		}
	}
	jsonResponse(w, map[string]any{"results": results, "working": ok, "total": len(results)})
}
