package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"tailcast/internal/filesystem"
	"tailcast/internal/logging"
	"tailcast/internal/metrics"
	"tailcast/internal/streaming"
	"tailcast/internal/tailstream"
)

// StreamJob serves a job's output file progressively. The file is
// usually still being written by ffmpeg when the client connects; the
// tail-following stream keeps handing out bytes as they appear, so
// playback starts within moments of the job starting.
// GET /api/stream/{id}
func (h *Handlers) StreamJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.transcoder.Get(id)
	if err != nil {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	f, err := filesystem.OpenWithRetry(job.OutputPath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Error("Failed to open output of job %s: %v", id, err)
		writeJSONError(w, "Job output not available", http.StatusNotFound)
		return
	}
	src := tailstream.FromFile(f)

	st := tailstream.New(src, job, tailstream.Config{
		ReadTimeout:  h.config.StreamTimeout,
		PollInterval: h.config.PollInterval,
	})
	// Close on every exit path. For an abandoned client this is what
	// tears the producing ffmpeg process down.
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn("Failed to close stream for job %s: %v", id, err)
		}
	}()

	st.SetSize(job.EstimatedSize)

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Job-Id", id)

	status := http.StatusOK
	if offset, ok := parseRangeStart(r.Header.Get("Range")); ok {
		if _, err := st.Seek(offset, io.SeekStart); err != nil {
			writeJSONError(w, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		// Total length is unknown while the producer runs.
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-/*", offset))
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	start := time.Now()
	written, pumpErr := streaming.Pump(r.Context(), w, st, streaming.Config{
		WriteTimeout: h.config.StreamTimeout,
	})
	elapsed := time.Since(start)

	_, polls := st.Stats()
	metrics.StreamBytesServed.Add(float64(written))
	metrics.StreamPollWaits.Add(float64(polls))
	metrics.StreamDuration.Observe(elapsed.Seconds())
	metrics.StreamsCompleted.WithLabelValues(streamOutcome(pumpErr)).Inc()

	switch {
	case pumpErr == nil:
		logging.Info("Stream %s finished: %d bytes in %v (%d poll waits)", id, written, elapsed, polls)
	case errors.Is(pumpErr, streaming.ErrClientGone):
		logging.Info("Stream %s: client disconnected after %d bytes", id, written)
	case errors.Is(pumpErr, streaming.ErrWriteTimeout):
		logging.Warn("Stream %s: write timeout after %d bytes", id, written)
	default:
		logging.Error("Stream %s failed after %d bytes: %v", id, written, pumpErr)
	}
}

// streamOutcome maps a pump result onto the completion metric label.
func streamOutcome(err error) string {
	switch {
	case err == nil:
		return "finished"
	case errors.Is(err, streaming.ErrClientGone):
		return "client_gone"
	case errors.Is(err, streaming.ErrWriteTimeout), errors.Is(err, streaming.ErrStreamCanceled):
		return "timeout"
	default:
		return "error"
	}
}

// parseRangeStart extracts the start offset from an open-ended byte
// range header ("bytes=N-"). Anything else, including multi-range and
// suffix forms, is ignored since the total length is not known yet.
func parseRangeStart(header string) (int64, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, false
	}

	spec := strings.TrimPrefix(header, prefix)
	if !strings.HasSuffix(spec, "-") || strings.Contains(spec, ",") {
		return 0, false
	}

	offset, err := strconv.ParseInt(strings.TrimSuffix(spec, "-"), 10, 64)
	if err != nil || offset < 0 {
		return 0, false
	}
	return offset, true
}
