package tailstream

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeJob implements Job with atomic counters, matching what the
// transcoder provides in production.
type fakeJob struct {
	exited     atomic.Bool
	transcoded atomic.Int64
	downloaded atomic.Int64
	endCalls   atomic.Int32
}

func (j *fakeJob) Exited() bool               { return j.exited.Load() }
func (j *fakeJob) BytesTranscoded() int64     { return j.transcoded.Load() }
func (j *fakeJob) AddBytesDownloaded(n int64) { j.downloaded.Add(n) }
func (j *fakeJob) RequestEnd()                { j.endCalls.Add(1) }

// scriptedSource yields a fixed sequence of read results: an empty step
// is an attempt that finds no data yet (0, io.EOF), a non-empty step
// returns those bytes. After the script runs out every read reports
// io.EOF, like a file nobody is appending to anymore.
type scriptedSource struct {
	mu       sync.Mutex
	steps    [][]byte
	attempts int
	size     int64
	pos      int64
	closed   bool
	readErr  error // returned instead of running the script, if set
}

func (s *scriptedSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.steps) == 0 {
		return 0, io.EOF
	}

	step := s.steps[0]
	s.steps = s.steps[1:]
	if len(step) == 0 {
		return 0, io.EOF
	}
	n := copy(p, step)
	s.pos += int64(n)
	return n, nil
}

func (s *scriptedSource) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if whence != io.SeekStart {
		return 0, errors.New("scripted source only seeks from start")
	}
	s.pos = offset
	return offset, nil
}

func (s *scriptedSource) Size() (int64, error) { return s.size, nil }

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedSource) readAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func fastConfig() Config {
	return Config{ReadTimeout: 250 * time.Millisecond, PollInterval: 10 * time.Millisecond}
}

func TestReadReturnsPartialDataImmediately(t *testing.T) {
	src := &scriptedSource{steps: [][]byte{[]byte("hello")}}
	job := &fakeJob{}
	st := New(src, job, fastConfig())
	defer st.Close()

	buf := make([]byte, 64)
	start := time.Now()
	n, err := st.Read(buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 bytes, got %d", n)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", buf[:n])
	}
	if src.readAttempts() != 1 {
		t.Errorf("Expected a single read attempt, got %d", src.readAttempts())
	}
	// A successful first attempt must not sleep at all.
	if elapsed > fastConfig().PollInterval {
		t.Errorf("Read with data available took %v, should not have polled", elapsed)
	}
}

func TestReadPollsUntilDataAppears(t *testing.T) {
	const emptyAttempts = 3
	steps := make([][]byte, 0, emptyAttempts+1)
	for i := 0; i < emptyAttempts; i++ {
		steps = append(steps, nil)
	}
	steps = append(steps, []byte("data"))

	src := &scriptedSource{steps: steps}
	job := &fakeJob{}
	st := New(src, job, fastConfig())
	defer st.Close()

	buf := make([]byte, 16)
	start := time.Now()
	n, err := st.Read(buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes, got %d", n)
	}
	if got := src.readAttempts(); got != emptyAttempts+1 {
		t.Errorf("Expected %d attempts, got %d", emptyAttempts+1, got)
	}
	if elapsed < emptyAttempts*fastConfig().PollInterval {
		t.Errorf("Read returned after %v, expected at least %d poll intervals", elapsed, emptyAttempts)
	}
}

func TestReadTimesOutWithoutJob(t *testing.T) {
	src := &scriptedSource{}
	st := New(src, nil, fastConfig())
	defer st.Close()

	buf := make([]byte, 16)
	start := time.Now()
	n, err := st.Read(buf)
	elapsed := time.Since(start)

	if n != 0 {
		t.Errorf("Expected 0 bytes, got %d", n)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
	cfg := fastConfig()
	if elapsed < cfg.ReadTimeout {
		t.Errorf("Read gave up after %v, before the %v timeout", elapsed, cfg.ReadTimeout)
	}
	if elapsed > cfg.ReadTimeout+10*cfg.PollInterval {
		t.Errorf("Read took %v, well past the %v timeout", elapsed, cfg.ReadTimeout)
	}
}

func TestJobExitShortCircuitsTimeout(t *testing.T) {
	src := &scriptedSource{}
	job := &fakeJob{}
	cfg := Config{ReadTimeout: 2 * time.Second, PollInterval: 10 * time.Millisecond}
	st := New(src, job, cfg)
	defer st.Close()

	exitAfter := 50 * time.Millisecond
	time.AfterFunc(exitAfter, func() { job.exited.Store(true) })

	buf := make([]byte, 16)
	start := time.Now()
	n, err := st.Read(buf)
	elapsed := time.Since(start)

	if n != 0 || !errors.Is(err, io.EOF) {
		t.Fatalf("Expected (0, io.EOF), got (%d, %v)", n, err)
	}
	// Job exit ends the poll loop without waiting out the full timeout.
	if elapsed >= cfg.ReadTimeout {
		t.Errorf("Read waited the full timeout (%v) despite job exit", elapsed)
	}
	if elapsed > exitAfter+20*cfg.PollInterval {
		t.Errorf("Read took %v to notice job exit at %v", elapsed, exitAfter)
	}
}

func TestBytesFlushedBeforeExitAreStillServed(t *testing.T) {
	src := &scriptedSource{steps: [][]byte{[]byte("tail")}}
	job := &fakeJob{}
	job.exited.Store(true)
	st := New(src, job, fastConfig())
	defer st.Close()

	buf := make([]byte, 16)
	n, err := st.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Expected (4, nil), got (%d, %v)", n, err)
	}

	n, err = st.Read(buf)
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Expected (0, io.EOF) after drain, got (%d, %v)", n, err)
	}
}

func TestDownloadedCounterAccounting(t *testing.T) {
	src := &scriptedSource{steps: [][]byte{
		[]byte("aaaa"),
		[]byte("bb"),
		nil,
		[]byte("cccccc"),
	}}
	job := &fakeJob{}
	st := New(src, job, fastConfig())
	defer st.Close()

	total := 0
	buf := make([]byte, 16)
	for i := 0; i < 3; i++ {
		n, err := st.Read(buf)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		total += n
	}

	if total != 12 {
		t.Fatalf("Expected 12 bytes total, got %d", total)
	}
	if got := job.downloaded.Load(); got != 12 {
		t.Errorf("Expected downloaded counter=12, got %d", got)
	}

	bytesRead, _ := st.Stats()
	if bytesRead != 12 {
		t.Errorf("Expected Stats bytesRead=12, got %d", bytesRead)
	}
}

func TestReadWithoutJobDoesNotPanic(t *testing.T) {
	src := &scriptedSource{steps: [][]byte{[]byte("abc"), []byte("def")}}
	st := New(src, nil, fastConfig())
	defer st.Close()

	buf := make([]byte, 16)
	for i := 0; i < 2; i++ {
		if _, err := st.Read(buf); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
	}
}

func TestSourceErrorsAreNotRetried(t *testing.T) {
	wantErr := errors.New("disk on fire")
	src := &scriptedSource{readErr: wantErr}
	job := &fakeJob{}
	st := New(src, job, fastConfig())
	defer st.Close()

	buf := make([]byte, 16)
	_, err := st.Read(buf)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected source error to propagate, got %v", err)
	}
	if src.readAttempts() != 1 {
		t.Errorf("Expected 1 attempt, got %d: I/O errors must not be polled", src.readAttempts())
	}
}

func TestSeekWithinConfirmedBytes(t *testing.T) {
	src := &scriptedSource{size: 200}
	job := &fakeJob{}
	job.transcoded.Store(100)
	st := New(src, job, fastConfig())
	defer st.Close()

	pos, err := st.Seek(100, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek to confirmed bound failed: %v", err)
	}
	if pos != 100 {
		t.Errorf("Expected position 100, got %d", pos)
	}

	// The physical file holds 200 bytes but the producer has only
	// confirmed 100; the rest is not yet safe to serve.
	if _, err := st.Seek(101, io.SeekStart); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported past confirmed bytes, got %v", err)
	}
}

func TestSeekBoundWithoutJobUsesPhysicalSize(t *testing.T) {
	src := &scriptedSource{size: 50}
	st := New(src, nil, fastConfig())
	defer st.Close()

	if _, err := st.Seek(50, io.SeekStart); err != nil {
		t.Errorf("Seek to physical size failed: %v", err)
	}
	if _, err := st.Seek(51, io.SeekStart); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported past physical size, got %v", err)
	}
}

func TestSeekRejectsOtherOrigins(t *testing.T) {
	src := &scriptedSource{size: 100}
	st := New(src, nil, fastConfig())
	defer st.Close()

	for _, whence := range []int{io.SeekCurrent, io.SeekEnd, 42} {
		if _, err := st.Seek(0, whence); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Seek whence=%d: expected ErrUnsupported, got %v", whence, err)
		}
	}
	if _, err := st.Seek(-1, io.SeekStart); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for negative offset, got %v", err)
	}
}

func TestReadStartsFromSeekOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	st := New(src, nil, fastConfig())
	defer st.Close()

	if _, err := st.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	buf := make([]byte, 16)
	n, err := st.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "456789" {
		t.Errorf("Expected read from offset 4, got %q", buf[:n])
	}
}

func TestWriteAlwaysFails(t *testing.T) {
	st := New(&scriptedSource{}, nil, fastConfig())
	defer st.Close()

	if _, err := st.Write([]byte("nope")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestSizeEstimate(t *testing.T) {
	st := New(&scriptedSource{}, nil, fastConfig())
	defer st.Close()

	if st.Size() != 0 {
		t.Errorf("Expected no estimate initially, got %d", st.Size())
	}
	st.SetSize(1 << 20)
	if st.Size() != 1<<20 {
		t.Errorf("Expected estimate 1MiB, got %d", st.Size())
	}
}

func TestCloseIsIdempotentAndNotifiesJobOnce(t *testing.T) {
	src := &scriptedSource{}
	job := &fakeJob{}
	st := New(src, job, fastConfig())

	if err := st.Close(); err != nil {
		t.Fatalf("First Close failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	st.Close()

	if got := job.endCalls.Load(); got != 1 {
		t.Errorf("Expected RequestEnd exactly once, got %d", got)
	}
	if !src.closed {
		t.Error("Expected underlying source to be closed")
	}
}

func TestOperationsFailAfterClose(t *testing.T) {
	st := New(&scriptedSource{size: 10}, nil, fastConfig())
	st.Close()

	if _, err := st.Read(make([]byte, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after close: expected ErrClosed, got %v", err)
	}
	if _, err := st.Seek(0, io.SeekStart); !errors.Is(err, ErrClosed) {
		t.Errorf("Seek after close: expected ErrClosed, got %v", err)
	}
}

func TestCancellationInterruptsPollWait(t *testing.T) {
	src := &scriptedSource{}
	job := &fakeJob{}
	cfg := Config{ReadTimeout: 5 * time.Second, PollInterval: 20 * time.Millisecond}
	st := New(src, job, cfg)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(40*time.Millisecond, cancel)

	start := time.Now()
	_, err := st.ReadContext(ctx, make([]byte, 16))
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Cancellation took %v to interrupt the wait", elapsed)
	}
}

func TestCloseWakesSleepingRead(t *testing.T) {
	src := &scriptedSource{}
	job := &fakeJob{}
	cfg := Config{ReadTimeout: 5 * time.Second, PollInterval: 20 * time.Millisecond}
	st := New(src, job, cfg)

	errCh := make(chan error, 1)
	go func() {
		_, err := st.Read(make([]byte, 16))
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	st.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed from interrupted read, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not observe Close within a second")
	}

	if got := job.endCalls.Load(); got != 1 {
		t.Errorf("Expected RequestEnd exactly once, got %d", got)
	}
}

func TestTailFollowsAppendingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grow.ts")

	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if _, err := w.WriteString("first"); err != nil {
		t.Fatal(err)
	}
	if err := w.Sync(); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	job := &fakeJob{}
	st := New(src, job, Config{ReadTimeout: 2 * time.Second, PollInterval: 10 * time.Millisecond})
	defer st.Close()

	buf := make([]byte, 32)
	n, err := st.Read(buf)
	if err != nil || string(buf[:n]) != "first" {
		t.Fatalf("Expected %q, got (%q, %v)", "first", buf[:n], err)
	}

	// Append while the consumer is already at EOF of the materialized
	// bytes; the next read should pick it up after polling.
	go func() {
		time.Sleep(50 * time.Millisecond)
		w.WriteString("second")
		w.Sync()
	}()

	n, err = st.Read(buf)
	if err != nil {
		t.Fatalf("Read of appended bytes failed: %v", err)
	}
	if string(buf[:n]) != "second" {
		t.Errorf("Expected %q, got %q", "second", buf[:n])
	}
	if got := job.downloaded.Load(); got != int64(len("firstsecond")) {
		t.Errorf("Expected downloaded counter=%d, got %d", len("firstsecond"), got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ReadTimeout != 30*time.Second {
		t.Errorf("Expected ReadTimeout=30s, got %v", cfg.ReadTimeout)
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Errorf("Expected PollInterval=50ms, got %v", cfg.PollInterval)
	}
}

func TestNewFillsZeroConfig(t *testing.T) {
	st := New(&scriptedSource{}, nil, Config{})
	defer st.Close()

	if st.cfg.ReadTimeout != DefaultConfig().ReadTimeout {
		t.Errorf("Expected default ReadTimeout, got %v", st.cfg.ReadTimeout)
	}
	if st.cfg.PollInterval != DefaultConfig().PollInterval {
		t.Errorf("Expected default PollInterval, got %v", st.cfg.PollInterval)
	}
}
