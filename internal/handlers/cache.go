package handlers

import (
	"net/http"

	"tailcast/internal/logging"
	"tailcast/internal/metrics"
)

// ClearCache removes the cached output of jobs that are no longer
// running.
// POST /api/cache/clear
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	freedBytes, err := h.transcoder.ClearCache()
	if err != nil {
		logging.Error("Failed to clear transcode cache: %v", err)
		writeJSONError(w, "Failed to clear transcode cache", http.StatusInternalServerError)
		return
	}

	metrics.CacheSizeBytes.Set(float64(h.transcoder.CacheSize()))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"freedBytes": freedBytes,
	})
}
