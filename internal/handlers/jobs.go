package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"tailcast/internal/filesystem"
	"tailcast/internal/logging"
	"tailcast/internal/mediatypes"
	"tailcast/internal/transcoder"
)

// transcodeRequest is the body of POST /api/transcode.
type transcodeRequest struct {
	SourcePath  string `json:"sourcePath"`
	TargetWidth int    `json:"targetWidth,omitempty"`
}

// jobView is the JSON shape of a job across the jobs endpoints. Jobs
// carry atomic counters that must be read through their accessors, so
// they are rendered through this snapshot rather than marshaled raw.
type jobView struct {
	ID              string `json:"id"`
	SourcePath      string `json:"sourcePath"`
	Status          string `json:"status"`
	BytesTranscoded int64  `json:"bytesTranscoded"`
	BytesDownloaded int64  `json:"bytesDownloaded"`
	EstimatedSize   int64  `json:"estimatedSize"`
	StartedAt       string `json:"startedAt"`
	DurationMs      int64  `json:"durationMs"`
	Error           string `json:"error,omitempty"`
}

func viewOf(job *transcoder.Job) jobView {
	v := jobView{
		ID:              job.ID,
		SourcePath:      job.SourcePath,
		Status:          string(job.Status()),
		BytesTranscoded: job.BytesTranscoded(),
		BytesDownloaded: job.BytesDownloaded(),
		EstimatedSize:   job.EstimatedSize,
		StartedAt:       job.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		DurationMs:      job.Duration().Milliseconds(),
	}
	if err := job.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// StartTranscode kicks off a new ffmpeg job for a source file.
// POST /api/transcode
func (h *Handlers) StartTranscode(w http.ResponseWriter, r *http.Request) {
	var req transcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourcePath == "" {
		writeJSONError(w, "sourcePath is required", http.StatusBadRequest)
		return
	}

	if !mediatypes.IsTranscodable(req.SourcePath) {
		writeJSONError(w, "Unsupported source file type", http.StatusUnsupportedMediaType)
		return
	}

	// Sources typically live on NFS volumes; stat through the
	// stale-handle retry helper.
	if _, err := filesystem.StatWithRetry(req.SourcePath, filesystem.DefaultRetryConfig()); err != nil {
		writeJSONError(w, "Source file not found", http.StatusNotFound)
		return
	}

	job, err := h.transcoder.Start(r.Context(), req.SourcePath, transcoder.Options{
		TargetWidth: req.TargetWidth,
	})
	if err != nil {
		switch {
		case errors.Is(err, transcoder.ErrDisabled):
			writeJSONError(w, "Transcoding is disabled", http.StatusServiceUnavailable)
		case errors.Is(err, transcoder.ErrBusy):
			writeJSONError(w, "Too many concurrent transcodes", http.StatusTooManyRequests)
		default:
			logging.Error("Failed to start transcode of %s: %v", req.SourcePath, err)
			writeJSONError(w, "Failed to start transcode", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, viewOf(job))
}

// ListJobs returns all known jobs, newest first.
// GET /api/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := h.transcoder.List()

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewOf(job))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"jobs":  views,
		"count": len(views),
	})
}

// GetJob returns the current state of one job.
// GET /api/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.transcoder.Get(id)
	if err != nil {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, viewOf(job))
}

// CancelJob requests early termination of a running job. A job that
// already exited is removed from the registry along with its output.
// DELETE /api/jobs/{id}
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.transcoder.Get(id)
	if err != nil {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	if job.Exited() {
		if err := h.transcoder.Remove(id); err != nil {
			logging.Error("Failed to remove job %s: %v", id, err)
			writeJSONError(w, "Failed to remove job", http.StatusInternalServerError)
			return
		}
		writeJSONStatus(w, "removed")
		return
	}

	job.RequestEnd()
	logging.Info("Cancel requested for job %s", id)
	writeJSONStatus(w, "canceling")
}
