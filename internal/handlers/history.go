package handlers

import (
	"net/http"
	"strconv"

	"tailcast/internal/database"
	"tailcast/internal/logging"
)

// GetHistory returns recently finished jobs, newest first.
// GET /api/history?limit=N
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSONError(w, "Job history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.db.ListJobs(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to list job history: %v", err)
		writeJSONError(w, "Failed to list job history", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []database.HistoryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
