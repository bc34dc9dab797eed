package workers

import (
	"runtime"
	"testing"
)

func TestCountRespectsLimit(t *testing.T) {
	if got := Count(100.0, 4); got != 4 {
		t.Errorf("Expected limit of 4, got %d", got)
	}
}

func TestCountMinimumOne(t *testing.T) {
	if got := Count(0.0001, 0); got < 1 {
		t.Errorf("Expected at least 1 worker, got %d", got)
	}
}

func TestCountEnvOverride(t *testing.T) {
	t.Setenv("TRANSCODE_WORKERS", "3")

	if got := Count(1.0, 0); got != 3 {
		t.Errorf("Expected override of 3, got %d", got)
	}
	// Limit still wins over the override
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("Expected limit of 2 over override, got %d", got)
	}
}

func TestCountInvalidEnvOverride(t *testing.T) {
	t.Setenv("TRANSCODE_WORKERS", "not-a-number")

	want := runtime.GOMAXPROCS(0)
	if got := Count(1.0, 0); got != want {
		t.Errorf("Expected %d workers with invalid override, got %d", want, got)
	}
}

func TestForTranscode(t *testing.T) {
	if got := ForTranscode(0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("Expected %d, got %d", runtime.GOMAXPROCS(0), got)
	}
}

func TestForIO(t *testing.T) {
	if got := ForIO(0); got != 2*runtime.GOMAXPROCS(0) {
		t.Errorf("Expected %d, got %d", 2*runtime.GOMAXPROCS(0), got)
	}
}
