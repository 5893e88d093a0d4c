package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reeflink/reeflink/internal/state"
)

// defaultHistoryLimit bounds history queries when no limit is given.
const defaultHistoryLimit = 100

// handleHistory returns recorded readings for a device, newest first.
//
// Query parameters:
//   - limit: maximum entries to return (default 100)
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	kind := state.Kind(chi.URLParam(r, "kind"))
	deviceID := chi.URLParam(r, "deviceID")

	if s.history == nil {
		writeNotFound(w, "history recording not enabled")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.History(r.Context(), kind, deviceID, limit)
	if err != nil {
		s.logger.Error("history query failed", "kind", kind, "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"id":      deviceID,
		"entries": entries,
		"count":   len(entries),
	})
}
