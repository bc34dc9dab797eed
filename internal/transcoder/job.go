package transcoder

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobStatus describes where a transcode job is in its lifecycle.
type JobStatus string

const (
	// StatusRunning means ffmpeg is still producing output.
	StatusRunning JobStatus = "running"
	// StatusFinished means ffmpeg exited cleanly.
	StatusFinished JobStatus = "finished"
	// StatusFailed means ffmpeg exited with an error.
	StatusFailed JobStatus = "failed"
	// StatusCanceled means the job was ended early on request.
	StatusCanceled JobStatus = "canceled"
)

// Job is one running or finished transcode. It implements
// tailstream.Job: the stream serving the output file reads the
// transcoded counter for its seek bound, bumps the downloaded counter
// as bytes go out, and fires RequestEnd when its consumer disappears.
//
// The byte counters are shared with the status endpoints, so they are
// atomics rather than mutex-guarded fields.
type Job struct {
	ID            string    `json:"id"`
	SourcePath    string    `json:"sourcePath"`
	OutputPath    string    `json:"-"`
	EstimatedSize int64     `json:"estimatedSize"`
	StartedAt     time.Time `json:"startedAt"`

	transcoded atomic.Int64
	downloaded atomic.Int64
	exited     atomic.Bool
	canceled   atomic.Bool

	endOnce sync.Once
	kill    func()

	done       chan struct{}
	err        error     // write-once before the exited flag flips
	finishedAt time.Time // set before the exited flag flips
}

// Exited reports whether ffmpeg has finished. Monotonic false to true.
func (j *Job) Exited() bool { return j.exited.Load() }

// BytesTranscoded returns the output bytes ffmpeg has written so far.
func (j *Job) BytesTranscoded() int64 { return j.transcoded.Load() }

// BytesDownloaded returns the bytes served to the consumer so far.
func (j *Job) BytesDownloaded() int64 { return j.downloaded.Load() }

// AddBytesDownloaded adds n to the consumer-side progress counter.
func (j *Job) AddBytesDownloaded(n int64) { j.downloaded.Add(n) }

// RequestEnd asks the job to stop producing. The first call kills the
// ffmpeg process; every later call is a no-op, including after the
// process has already exited.
func (j *Job) RequestEnd() {
	j.endOnce.Do(func() {
		// A consumer closing its stream after the process has already
		// exited is a normal completion, not a cancellation.
		if j.exited.Load() {
			return
		}
		j.canceled.Store(true)
		if j.kill != nil {
			j.kill()
		}
	})
}

// Done is closed once ffmpeg has exited and the counters are final.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the transcode failure, if any. Valid only after Done.
func (j *Job) Err() error { return j.err }

// Status derives the job state from the exit and cancel flags.
func (j *Job) Status() JobStatus {
	if !j.exited.Load() {
		return StatusRunning
	}
	if j.canceled.Load() {
		return StatusCanceled
	}
	if j.err != nil {
		return StatusFailed
	}
	return StatusFinished
}

// Duration returns how long the job has been running, or ran in total
// once it has exited.
func (j *Job) Duration() time.Duration {
	if j.exited.Load() {
		return j.finishedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}
