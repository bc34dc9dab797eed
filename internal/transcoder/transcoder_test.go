package transcoder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestJob(id string, outputPath string) *Job {
	return &Job{
		ID:         id,
		SourcePath: "/media/in.mkv",
		OutputPath: outputPath,
		StartedAt:  time.Now(),
		done:       make(chan struct{}),
	}
}

func TestStartWhenDisabled(t *testing.T) {
	tr := New(t.TempDir(), false, 2)

	_, err := tr.Start(context.Background(), "/media/in.mkv", Options{})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestStartWhenBusy(t *testing.T) {
	tr := New(t.TempDir(), true, 1)

	// Occupy the only slot; Start must refuse before touching ffprobe.
	if !tr.sem.TryAcquire(1) {
		t.Fatal("Failed to acquire test slot")
	}
	defer tr.sem.Release(1)

	_, err := tr.Start(context.Background(), "/media/in.mkv", Options{})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
}

func TestGetUnknownJob(t *testing.T) {
	tr := New(t.TempDir(), true, 2)

	if _, err := tr.Get("no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := tr.Cancel("no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Cancel, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	tr := New(t.TempDir(), true, 2)

	older := newTestJob("older", "")
	older.StartedAt = time.Now().Add(-time.Minute)
	newer := newTestJob("newer", "")

	tr.jobs["older"] = older
	tr.jobs["newer"] = newer

	jobs := tr.List()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "newer" || jobs[1].ID != "older" {
		t.Errorf("Expected newest first, got %s, %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestJobRequestEndIsIdempotent(t *testing.T) {
	killCalls := 0
	job := newTestJob("j", "")
	job.kill = func() { killCalls++ }

	job.RequestEnd()
	job.RequestEnd()
	job.RequestEnd()

	if killCalls != 1 {
		t.Errorf("Expected kill exactly once, got %d", killCalls)
	}
	if job.Status() != StatusRunning {
		// The process has not exited yet; canceled only shows in the
		// status once it has.
		t.Errorf("Expected running until exit, got %s", job.Status())
	}

	job.finishedAt = time.Now()
	job.exited.Store(true)
	if job.Status() != StatusCanceled {
		t.Errorf("Expected canceled after exit, got %s", job.Status())
	}
}

func TestRequestEndAfterExitKeepsStatus(t *testing.T) {
	job := newTestJob("j", "")
	job.finishedAt = time.Now()
	job.exited.Store(true)

	// A consumer closing its stream after a clean finish must not
	// relabel the job as canceled.
	job.RequestEnd()

	if job.Status() != StatusFinished {
		t.Errorf("Expected finished after post-exit RequestEnd, got %s", job.Status())
	}
}

func TestJobStatusTransitions(t *testing.T) {
	job := newTestJob("j", "")
	if job.Status() != StatusRunning {
		t.Errorf("Expected running, got %s", job.Status())
	}

	job.finishedAt = time.Now()
	job.exited.Store(true)
	if job.Status() != StatusFinished {
		t.Errorf("Expected finished, got %s", job.Status())
	}

	failed := newTestJob("f", "")
	failed.err = errors.New("boom")
	failed.finishedAt = time.Now()
	failed.exited.Store(true)
	if failed.Status() != StatusFailed {
		t.Errorf("Expected failed, got %s", failed.Status())
	}
}

func TestJobCounters(t *testing.T) {
	job := newTestJob("j", "")

	var buf bytes.Buffer
	cw := &countingWriter{w: &buf, job: job}

	for _, chunk := range []string{"aaaa", "bb", "cccccc"} {
		if _, err := cw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if job.BytesTranscoded() != 12 {
		t.Errorf("Expected 12 transcoded bytes, got %d", job.BytesTranscoded())
	}
	if buf.Len() != 12 {
		t.Errorf("Expected 12 bytes on disk, got %d", buf.Len())
	}

	job.AddBytesDownloaded(5)
	job.AddBytesDownloaded(7)
	if job.BytesDownloaded() != 12 {
		t.Errorf("Expected 12 downloaded bytes, got %d", job.BytesDownloaded())
	}
}

func TestRemoveRunningJobRefused(t *testing.T) {
	tr := New(t.TempDir(), true, 2)
	tr.jobs["j"] = newTestJob("j", "")

	if err := tr.Remove("j"); err == nil {
		t.Error("Expected Remove to refuse a running job")
	}
}

func TestRemoveDeletesOutput(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, true, 2)

	out := filepath.Join(dir, "j.mp4")
	if err := os.WriteFile(out, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := newTestJob("j", out)
	job.finishedAt = time.Now()
	job.exited.Store(true)
	tr.jobs["j"] = job

	if err := tr.Remove("j"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("Expected output file to be deleted")
	}
	if _, err := tr.Get("j"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected job to be forgotten")
	}
}

func TestClearCacheSkipsActiveJobs(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, true, 2)

	activeOut := filepath.Join(dir, "active.mp4")
	staleOut := filepath.Join(dir, "stale.mp4")
	if err := os.WriteFile(activeOut, []byte("still growing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(staleOut, []byte("old output"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr.jobs["active"] = newTestJob("active", activeOut)

	freed, err := tr.ClearCache()
	if err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	if freed != int64(len("old output")) {
		t.Errorf("Expected %d bytes freed, got %d", len("old output"), freed)
	}
	if _, err := os.Stat(activeOut); err != nil {
		t.Error("Active job output must survive a cache clear")
	}
	if _, err := os.Stat(staleOut); !os.IsNotExist(err) {
		t.Error("Stale output should be removed")
	}
}

func TestActiveCountAndCacheSize(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, true, 2)

	if tr.ActiveCount() != 0 {
		t.Errorf("Expected 0 active jobs, got %d", tr.ActiveCount())
	}

	running := newTestJob("running", "")
	finished := newTestJob("finished", "")
	finished.finishedAt = time.Now()
	finished.exited.Store(true)
	tr.jobs["running"] = running
	tr.jobs["finished"] = finished

	if tr.ActiveCount() != 1 {
		t.Errorf("Expected 1 active job, got %d", tr.ActiveCount())
	}

	if err := os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.mp4"), []byte("123"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := tr.CacheSize(); got != 8 {
		t.Errorf("Expected cache size 8, got %d", got)
	}
}

func TestClearCacheMissingDir(t *testing.T) {
	tr := New(filepath.Join(t.TempDir(), "nope"), true, 2)

	freed, err := tr.ClearCache()
	if err != nil {
		t.Fatalf("ClearCache on missing dir failed: %v", err)
	}
	if freed != 0 {
		t.Errorf("Expected 0 bytes freed, got %d", freed)
	}
}

func TestBuildArgs(t *testing.T) {
	info := &MediaInfo{Width: 1920, Height: 1080}

	args := buildArgs("/media/in.mkv", Options{}, info)
	if args[len(args)-1] != "-" {
		t.Error("Expected output to stdout")
	}
	for _, arg := range args {
		if arg == "-vf" {
			t.Error("No scale filter expected without a target width")
		}
	}

	args = buildArgs("/media/in.mkv", Options{TargetWidth: 1280}, info)
	found := false
	for i, arg := range args {
		if arg == "-vf" && i+1 < len(args) && args[i+1] == "scale=1280:-2" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected scale filter in %v", args)
	}

	// Upscaling is never requested.
	args = buildArgs("/media/in.mkv", Options{TargetWidth: 3840}, info)
	for _, arg := range args {
		if arg == "-vf" {
			t.Error("No scale filter expected when target exceeds source width")
		}
	}
}

func TestExtractField(t *testing.T) {
	output := `{"streams":[{"codec_name":"hevc","width":1920,"height":1080}],` +
		`"format":{"duration":"123.456","bit_rate":"5000000"}}`

	tests := []struct {
		key  string
		want string
	}{
		{`"codec_name"`, "hevc"},
		{`"width"`, "1920"},
		{`"height"`, "1080"},
		{`"duration"`, "123.456"},
		{`"bit_rate"`, "5000000"},
	}

	for _, tt := range tests {
		got, ok := extractField(output, tt.key)
		if !ok {
			t.Errorf("extractField(%s): not found", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("extractField(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, ok := extractField(output, `"missing"`); ok {
		t.Error("Expected missing key to report not found")
	}
}

func TestEstimateSize(t *testing.T) {
	info := &MediaInfo{Duration: 60, BitRate: 8_000_000}
	if got := info.EstimateSize(); got != 60_000_000 {
		t.Errorf("Expected 60000000, got %d", got)
	}

	// No bitrate in the source: fall back to the default output rate.
	info = &MediaInfo{Duration: 10}
	if got := info.EstimateSize(); got != 10*fallbackBitRate/8 {
		t.Errorf("Expected fallback estimate, got %d", got)
	}

	info = &MediaInfo{}
	if got := info.EstimateSize(); got != 0 {
		t.Errorf("Expected 0 for unknown duration, got %d", got)
	}
}
