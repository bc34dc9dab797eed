package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tailcast/internal/logging"
	"tailcast/internal/transcoder"
)

// GetPreview returns a JPEG frame extracted from a job's in-progress
// output, optionally scaled to ?width=.
// GET /api/preview/{id}
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSONError(w, "Invalid width", http.StatusBadRequest)
			return
		}
		width = parsed
	}

	// Rendered into a buffer first so failures can still produce a
	// proper error status instead of a truncated image body.
	var buf bytes.Buffer
	if err := h.transcoder.Preview(r.Context(), id, width, &buf); err != nil {
		switch {
		case errors.Is(err, transcoder.ErrNotFound):
			writeJSONError(w, "Job not found", http.StatusNotFound)
		case errors.Is(err, transcoder.ErrNoOutput):
			writeJSONError(w, "Job has no output yet", http.StatusConflict)
		default:
			logging.Error("Failed to render preview for job %s: %v", id, err)
			writeJSONError(w, "Failed to render preview", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Error("Failed to write preview for job %s: %v", id, err)
	}
}
