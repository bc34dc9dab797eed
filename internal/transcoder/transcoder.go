package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tailcast/internal/logging"
	"tailcast/internal/metrics"

	"github.com/google/uuid"
	"github.com/marusama/semaphore/v2"
)

// Sentinel errors for job management.
var (
	// ErrDisabled indicates transcoding is turned off, typically because
	// the cache directory is not writable.
	ErrDisabled = errors.New("transcoding disabled")

	// ErrBusy indicates the concurrent-job limit is reached.
	ErrBusy = errors.New("too many concurrent transcodes")

	// ErrNotFound indicates no job exists with the requested ID.
	ErrNotFound = errors.New("transcode job not found")
)

// Options control a single transcode.
type Options struct {
	// TargetWidth scales the video down to this width when it is
	// smaller than the source. Zero keeps the source resolution.
	TargetWidth int
}

// Transcoder spawns ffmpeg jobs that write fragmented MP4 into the
// cache directory. Output files grow while clients already stream them,
// so every byte ffmpeg emits passes through a counting writer that
// keeps the job's transcoded counter current.
type Transcoder struct {
	cacheDir string
	enabled  bool
	sem      semaphore.Semaphore

	jobsMu sync.Mutex
	jobs   map[string]*Job

	// onFinish runs once per job after ffmpeg exits, off the request
	// path. Used to record job history.
	onFinish func(*Job)
}

// New creates a Transcoder writing into cacheDir, running at most
// maxConcurrent ffmpeg processes at a time.
func New(cacheDir string, enabled bool, maxConcurrent int) *Transcoder {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Transcoder{
		cacheDir: cacheDir,
		enabled:  enabled,
		sem:      semaphore.New(maxConcurrent),
		jobs:     make(map[string]*Job),
	}
}

// IsEnabled returns whether transcoding is enabled.
func (t *Transcoder) IsEnabled() bool {
	return t.enabled
}

// SetFinishHook registers fn to run after each job exits.
func (t *Transcoder) SetFinishHook(fn func(*Job)) {
	t.onFinish = fn
}

// Start probes sourcePath and spawns ffmpeg producing into a fresh
// cache file. It returns as soon as the process is running; output
// accumulates in the background and is served through tail-following
// streams while it grows.
func (t *Transcoder) Start(ctx context.Context, sourcePath string, opts Options) (*Job, error) {
	if !t.enabled {
		return nil, ErrDisabled
	}

	if !t.sem.TryAcquire(1) {
		return nil, ErrBusy
	}

	info, err := Probe(ctx, sourcePath)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}

	id := uuid.NewString()
	outputPath := filepath.Join(t.cacheDir, id+".mp4")

	out, err := os.Create(outputPath)
	if err != nil {
		t.sem.Release(1)
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	// The job outlives the request that started it; its lifetime is
	// governed by its own context so RequestEnd can kill it later.
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:            id,
		SourcePath:    sourcePath,
		OutputPath:    outputPath,
		EstimatedSize: info.EstimateSize(),
		StartedAt:     time.Now(),
		kill:          cancel,
		done:          make(chan struct{}),
	}

	cmd := exec.CommandContext(jobCtx, "ffmpeg", buildArgs(sourcePath, opts, info)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		out.Close()
		os.Remove(outputPath)
		t.sem.Release(1)
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		out.Close()
		os.Remove(outputPath)
		t.sem.Release(1)
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	t.jobsMu.Lock()
	t.jobs[id] = job
	t.jobsMu.Unlock()

	metrics.JobsActive.Inc()
	logging.Info("Transcode %s started: %s (estimated %d bytes)", id, sourcePath, job.EstimatedSize)

	go t.run(job, cmd, out, stdout, &stderr)

	return job, nil
}

// run pumps ffmpeg output into the cache file and settles the job's
// final state once the process exits.
func (t *Transcoder) run(job *Job, cmd *exec.Cmd, out *os.File, stdout io.Reader, stderr *bytes.Buffer) {
	defer t.sem.Release(1)
	defer metrics.JobsActive.Dec()

	_, copyErr := io.Copy(&countingWriter{w: out, job: job}, stdout)

	cmdErr := cmd.Wait()
	if err := out.Close(); err != nil {
		logging.Warn("Failed to close output file for job %s: %v", job.ID, err)
	}

	switch {
	case job.canceled.Load():
		// Killed on request; ffmpeg's exit status is noise.
		logging.Info("Transcode %s canceled after %d bytes", job.ID, job.BytesTranscoded())
	case cmdErr != nil:
		job.err = fmt.Errorf("ffmpeg: %w", cmdErr)
		logging.Error("Transcode %s failed: %v, stderr: %s", job.ID, cmdErr, stderr.String())
	case copyErr != nil:
		job.err = fmt.Errorf("write transcode output: %w", copyErr)
		logging.Error("Transcode %s output error: %v", job.ID, copyErr)
	default:
		logging.Info("Transcode %s finished: %d bytes in %v", job.ID, job.BytesTranscoded(), time.Since(job.StartedAt))
	}

	job.finishedAt = time.Now()
	job.exited.Store(true)
	close(job.done)

	metrics.JobsTotal.WithLabelValues(string(job.Status())).Inc()

	if t.onFinish != nil {
		t.onFinish(job)
	}
}

// countingWriter tees ffmpeg output into the cache file while keeping
// the job's transcoded counter in step with what is on disk.
type countingWriter struct {
	w   io.Writer
	job *Job
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.job.transcoded.Add(int64(n))
		metrics.BytesTranscoded.Add(float64(n))
	}
	return n, err
}

// buildArgs assembles the ffmpeg invocation. Fragmented MP4 keeps the
// file playable from the front while the tail is still being written.
func buildArgs(sourcePath string, opts Options, info *MediaInfo) []string {
	args := []string{
		"-i", sourcePath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "frag_keyframe+empty_moov+faststart",
		"-f", "mp4",
	}

	if opts.TargetWidth > 0 && opts.TargetWidth < info.Width {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", opts.TargetWidth))
	}

	return append(args, "-")
}

// Get returns the job with the given ID.
func (t *Transcoder) Get(id string) (*Job, error) {
	t.jobsMu.Lock()
	defer t.jobsMu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job, nil
}

// List returns all known jobs, newest first.
func (t *Transcoder) List() []*Job {
	t.jobsMu.Lock()
	defer t.jobsMu.Unlock()

	jobs := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// Cancel requests early termination of a job.
func (t *Transcoder) Cancel(id string) error {
	job, err := t.Get(id)
	if err != nil {
		return err
	}

	job.RequestEnd()
	return nil
}

// Remove drops a finished job from the registry and deletes its cache
// file. Running jobs must be canceled first.
func (t *Transcoder) Remove(id string) error {
	job, err := t.Get(id)
	if err != nil {
		return err
	}
	if !job.Exited() {
		return fmt.Errorf("job %s still running", id)
	}

	t.jobsMu.Lock()
	delete(t.jobs, id)
	t.jobsMu.Unlock()

	if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove output for job %s: %v", id, err)
	}
	return nil
}

// ActiveCount returns the number of jobs still producing output.
func (t *Transcoder) ActiveCount() int {
	t.jobsMu.Lock()
	defer t.jobsMu.Unlock()

	count := 0
	for _, job := range t.jobs {
		if !job.Exited() {
			count++
		}
	}
	return count
}

// CacheSize returns the total size of files in the cache directory.
func (t *Transcoder) CacheSize() int64 {
	var size int64

	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			size += info.Size()
		}
	}
	return size
}

// Cleanup stops all active jobs. Called on shutdown.
func (t *Transcoder) Cleanup() {
	for _, job := range t.List() {
		if !job.Exited() {
			logging.Info("Killing transcode job %s", job.ID)
			job.RequestEnd()
		}
	}
}

// ClearCache removes cached output files of jobs that are no longer
// running and returns the number of bytes freed.
func (t *Transcoder) ClearCache() (int64, error) {
	if t.cacheDir == "" {
		return 0, nil
	}

	active := make(map[string]bool)
	t.jobsMu.Lock()
	for _, job := range t.jobs {
		if !job.Exited() {
			active[filepath.Base(job.OutputPath)] = true
		}
	}
	t.jobsMu.Unlock()

	var freedBytes int64

	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read transcode cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || active[entry.Name()] {
			continue
		}

		path := filepath.Join(t.cacheDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}

		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove file %s: %v", path, err)
			continue
		}
		freedBytes += info.Size()
	}

	logging.Info("Cleared transcode cache: freed %d bytes", freedBytes)
	return freedBytes, nil
}
