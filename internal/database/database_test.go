package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func testEntry(jobID string) HistoryEntry {
	return HistoryEntry{
		JobID:           jobID,
		SourcePath:      "/media/movie.mkv",
		Status:          "finished",
		BytesTranscoded: 1 << 30,
		BytesDownloaded: 1 << 29,
		EstimatedSize:   1 << 30,
		Duration:        90_000,
		StartedAt:       time.Now().Add(-2 * time.Minute),
		FinishedAt:      time.Now(),
	}
}

func TestRecordAndListJobs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.RecordJob(ctx, testEntry("job-1")); err != nil {
		t.Fatalf("RecordJob failed: %v", err)
	}

	second := testEntry("job-2")
	second.Status = "canceled"
	second.StartedAt = time.Now()
	if err := db.RecordJob(ctx, second); err != nil {
		t.Fatalf("RecordJob failed: %v", err)
	}

	entries, err := db.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].JobID != "job-2" {
		t.Errorf("Expected newest first, got %s", entries[0].JobID)
	}
	if entries[1].BytesTranscoded != 1<<30 {
		t.Errorf("Expected transcoded bytes to round-trip, got %d", entries[1].BytesTranscoded)
	}
	if entries[0].Status != "canceled" {
		t.Errorf("Expected canceled status, got %s", entries[0].Status)
	}
}

func TestRecordJobIsIdempotentPerID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := testEntry("job-1")
	if err := db.RecordJob(ctx, entry); err != nil {
		t.Fatalf("RecordJob failed: %v", err)
	}

	entry.BytesDownloaded = 999
	if err := db.RecordJob(ctx, entry); err != nil {
		t.Fatalf("Re-recording failed: %v", err)
	}

	entries, err := db.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry after re-record, got %d", len(entries))
	}
	if entries[0].BytesDownloaded != 999 {
		t.Errorf("Expected updated download count, got %d", entries[0].BytesDownloaded)
	}
}

func TestListJobsEmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	entries, err := db.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestListJobsClampsLimit(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.ListJobs(context.Background(), -5); err != nil {
		t.Fatalf("ListJobs with negative limit failed: %v", err)
	}
	if _, err := db.ListJobs(context.Background(), 100000); err != nil {
		t.Fatalf("ListJobs with huge limit failed: %v", err)
	}
}

func TestPrune(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	old := testEntry("old-job")
	old.FinishedAt = time.Now().Add(-48 * time.Hour)
	if err := db.RecordJob(ctx, old); err != nil {
		t.Fatalf("RecordJob failed: %v", err)
	}
	if err := db.RecordJob(ctx, testEntry("fresh-job")); err != nil {
		t.Fatalf("RecordJob failed: %v", err)
	}

	removed, err := db.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned row, got %d", removed)
	}

	entries, err := db.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(entries) != 1 || entries[0].JobID != "fresh-job" {
		t.Errorf("Expected only fresh-job to survive, got %+v", entries)
	}
}
