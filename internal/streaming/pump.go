package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write operation exceeded the
	// configured timeout. This typically means the client is receiving
	// data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the
	// stream completed, detected via request context cancellation.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the stream was canceled
	// programmatically rather than by the client.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Source is the read side of a pump: a reader whose blocking waits can
// be interrupted through the context. The tail-following stream
// satisfies it, which is how a client disconnect interrupts a poll wait
// instead of letting it run out the clock.
type Source interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// Config controls the pump behavior.
type Config struct {
	// WriteTimeout is the maximum time to wait for a single write to
	// the client.
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize is the read buffer size.
	ChunkSize int
	// OnProgress is called after each chunk with cumulative bytes written.
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultConfig returns sensible defaults for video streaming.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		MaxDuration:  0,
		ChunkSize:    256 * 1024, // 256KB chunks for video
		OnProgress:   nil,
	}
}

// Pump copies from src to the client until src reports end of stream,
// the client disconnects, a write times out, or ctx is canceled. Each
// chunk is flushed so playback can begin while the producer is still
// writing. It returns the number of bytes delivered.
func Pump(ctx context.Context, w http.ResponseWriter, src Source, config Config) (int64, error) {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, config.ChunkSize)
	start := time.Now()

	var written int64
	for {
		if config.MaxDuration > 0 && time.Since(start) > config.MaxDuration {
			return written, ErrWriteTimeout
		}

		n, err := src.ReadContext(ctx, buf)
		if n > 0 {
			wn, werr := writeWithTimeout(ctx, w, buf[:n], config.WriteTimeout)
			written += int64(wn)

			if werr != nil {
				return written, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
			if config.OnProgress != nil {
				config.OnProgress(written, time.Since(start))
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// Producer finished and everything was delivered.
				return written, nil
			}
			if errors.Is(err, context.Canceled) {
				return written, ErrClientGone
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return written, ErrStreamCanceled
			}
			return written, err
		}
	}
}

// writeWithTimeout performs a single write bounded in time. The write
// itself runs in a goroutine because http.ResponseWriter has no
// deadline of its own once the handler is streaming.
func writeWithTimeout(ctx context.Context, w io.Writer, p []byte, timeout time.Duration) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-timer.C:
		return 0, ErrWriteTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0, ErrClientGone
		}
		return 0, ErrStreamCanceled
	}
}
