package tailstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Sentinel errors for tail-following stream operations.
var (
	// ErrUnsupported indicates an operation the stream cannot satisfy:
	// writes, seeks relative to the current position or end, and seeks
	// past the bytes materialized so far.
	ErrUnsupported = errors.New("operation not supported on tail-following stream")

	// ErrClosed indicates the stream was closed and can no longer be used.
	ErrClosed = errors.New("tail-following stream closed")
)

// Job is the read/write view of the producing job whose output is being
// tailed. Implementations must be safe for concurrent use; the byte
// counters are expected to be atomic.
type Job interface {
	// Exited reports whether the producing process has finished.
	// Once true it stays true.
	Exited() bool

	// BytesTranscoded returns the number of output bytes the producer
	// has confirmed written so far.
	BytesTranscoded() int64

	// AddBytesDownloaded adds n to the consumer-side progress counter.
	AddBytesDownloaded(n int64)

	// RequestEnd asks the producer to stop. It is idempotent and must
	// not fail if the producer already ended.
	RequestEnd()
}

// Source is the raw byte source being tailed: typically a file opened
// for read while another process appends to it. Reads are expected to
// return whatever bytes are available immediately, possibly zero with
// io.EOF, rather than blocking for a full buffer.
type Source interface {
	io.Reader
	io.Seeker
	io.Closer

	// Size returns the number of bytes physically written so far.
	Size() (int64, error)
}

// Config controls the poll behavior of a Stream.
type Config struct {
	// ReadTimeout is the maximum time a single Read call waits for new
	// bytes to appear before reporting end of stream.
	ReadTimeout time.Duration
	// PollInterval is the fixed sleep between read attempts while
	// waiting for the producer to append more bytes.
	PollInterval time.Duration
}

// DefaultConfig returns the poll settings used by the server.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  30 * time.Second,
		PollInterval: 50 * time.Millisecond,
	}
}

// Stream serves bytes from a source that is still being appended to by a
// producing job. It reads like a finite stream, but a read that finds no
// data waits (bounded by Config.ReadTimeout) for the producer to append
// more before giving up, so consumers never see a premature end of
// stream while the producer is active.
//
// A Stream is a single-consumer adapter: one logical reader drives
// sequential reads. Close may race with an in-flight read and wakes it
// promptly. The attached Job is optional; without one the stream tails
// the source on timeout alone.
type Stream struct {
	src Source
	job Job // nil when tailing a source with no producer
	cfg Config

	mu     sync.Mutex
	size   int64 // caller-supplied estimate of the total length
	closed bool
	reads  int64 // bytes handed to the consumer
	polls  int64 // waits spent between empty read attempts

	done chan struct{}
}

// New wraps src in a tail-following stream. job may be nil for sources
// with no associated producer, e.g. a live feed of indefinite length.
// Zero fields in cfg fall back to DefaultConfig values.
func New(src Source, job Job, cfg Config) *Stream {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	return &Stream{
		src:  src,
		job:  job,
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Read implements io.Reader. It returns as soon as any bytes are
// available, waiting between polls while the producer is still running.
// End of stream is reported as (0, io.EOF) once the producer has exited
// with nothing more to give, or once ReadTimeout elapses with no data.
func (s *Stream) Read(p []byte) (int, error) {
	return s.read(context.Background(), p)
}

// ReadContext is Read with cancellation. Cancelling ctx interrupts a
// wait between polls promptly and unwinds with ctx.Err().
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	return s.read(ctx, p)
}

func (s *Stream) read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(s.cfg.ReadTimeout)

	for {
		// Sample the exit flag before reading so bytes the producer
		// flushed just before exiting are still served by this attempt.
		exited := s.job != nil && s.job.Exited()

		n, err := s.readOnce(p)
		if n > 0 {
			s.mu.Lock()
			s.reads += int64(n)
			s.mu.Unlock()

			if s.job != nil {
				s.job.AddBytesDownloaded(int64(n))
			}
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			// Real I/O errors are never retried as "no data yet".
			return 0, err
		}

		if exited {
			return 0, io.EOF
		}
		if !time.Now().Before(deadline) {
			return 0, io.EOF
		}

		s.mu.Lock()
		s.polls++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-s.done:
			return 0, ErrClosed
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// readOnce performs a single attempt against the source, guarding
// against the source having been released by a concurrent Close.
func (s *Stream) readOnce(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	return s.src.Read(p)
}

// Seek repositions the stream within bytes already materialized.
// Only io.SeekStart is supported, and the target offset must not exceed
// the confirmed length: the producer's transcoded byte count when a job
// is attached, otherwise the source's physical size. Seeking ahead of
// what has been produced cannot be satisfied and fails rather than
// silently clamping.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("seek with whence %d: %w", whence, ErrUnsupported)
	}
	if offset < 0 {
		return 0, fmt.Errorf("seek to negative offset %d: %w", offset, ErrUnsupported)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	bound, err := s.confirmedLength()
	if err != nil {
		return 0, err
	}
	if offset > bound {
		return 0, fmt.Errorf("seek to %d beyond %d materialized bytes: %w", offset, bound, ErrUnsupported)
	}

	return s.src.Seek(offset, io.SeekStart)
}

// confirmedLength returns the number of bytes safe to serve. Callers
// must hold s.mu. With a job attached this is the producer's confirmed
// count, which may trail the physical file size while container
// structures are still being written.
func (s *Stream) confirmedLength() (int64, error) {
	if s.job != nil {
		return s.job.BytesTranscoded(), nil
	}
	return s.src.Size()
}

// Write always fails: the stream is read-only from the consumer side.
func (s *Stream) Write([]byte) (int, error) {
	return 0, fmt.Errorf("write: %w", ErrUnsupported)
}

// Size returns the caller-supplied estimate of the total length, not
// the physical size, which is unknown while the producer runs. Zero
// means no estimate has been set.
func (s *Stream) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// SetSize updates the length estimate. It does not truncate anything;
// callers use it to push a newly learned approximate total size so
// downstream length reporting can proceed before the producer finishes.
func (s *Stream) SetSize(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = n
}

// Stats returns the bytes served to the consumer and the number of
// waits spent polling for more data.
func (s *Stream) Stats() (bytesRead, polls int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.polls
}

// Close releases the source and, if a job is attached, notifies it that
// this consumer is gone so the producer can be torn down. Close is
// idempotent and safe to call while a read is waiting between polls;
// the read observes the close within one poll interval. A source close
// failure is reported but never prevents the job notification.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	src, job := s.src, s.job
	s.mu.Unlock()

	err := src.Close()
	if job != nil {
		job.RequestEnd()
	}
	return err
}
