package handlers

import (
	"net/http"
	"runtime"
	"time"

	"tailcast/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status             string `json:"status"`
	Version            string `json:"version"`
	Uptime             string `json:"uptime"`
	TranscodingEnabled bool   `json:"transcodingEnabled"`
	HistoryEnabled     bool   `json:"historyEnabled"`

	// Activity info
	ActiveJobs     int   `json:"activeJobs"`
	CacheSizeBytes int64 `json:"cacheSizeBytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Version:            startup.Version,
		Uptime:             time.Since(h.startTime).Round(time.Second).String(),
		TranscodingEnabled: h.transcoder.IsEnabled(),
		HistoryEnabled:     h.db != nil,
		ActiveJobs:         h.transcoder.ActiveCount(),
		CacheSizeBytes:     h.transcoder.CacheSize(),
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
		NumGoroutine:       runtime.NumGoroutine(),
	}

	// The server serves cached output fine without a working
	// transcoder, so a disabled transcoder degrades rather than fails.
	if response.TranscodingEnabled {
		response.Status = statusHealthy
	} else {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, map[string]string{
				"status": "not_ready",
				"reason": "history database unreachable",
			})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
