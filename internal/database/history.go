package database

import (
	"context"
	"time"
)

// HistoryEntry is one finished transcode job as recorded for posterity.
type HistoryEntry struct {
	JobID           string    `json:"jobId"`
	SourcePath      string    `json:"sourcePath"`
	Status          string    `json:"status"`
	BytesTranscoded int64     `json:"bytesTranscoded"`
	BytesDownloaded int64     `json:"bytesDownloaded"`
	EstimatedSize   int64     `json:"estimatedSize"`
	Duration        int64     `json:"durationMs"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// RecordJob inserts a terminal job into the history. Re-recording the
// same job ID overwrites the earlier row, so a retried finish hook is
// harmless.
func (d *Database) RecordJob(ctx context.Context, entry HistoryEntry) error {
	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(opCtx, `
		INSERT INTO job_history
			(job_id, source_path, status, bytes_transcoded, bytes_downloaded,
			 estimated_size, duration_ms, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			bytes_transcoded = excluded.bytes_transcoded,
			bytes_downloaded = excluded.bytes_downloaded,
			duration_ms = excluded.duration_ms,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		entry.JobID, entry.SourcePath, entry.Status, entry.BytesTranscoded,
		entry.BytesDownloaded, entry.EstimatedSize, entry.Duration, entry.Error,
		entry.StartedAt.Unix(), entry.FinishedAt.Unix(),
	)

	observe("record_job", start, err)
	return err
}

// ListJobs returns the most recent history entries, newest first.
func (d *Database) ListJobs(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(opCtx, `
		SELECT job_id, source_path, status, bytes_transcoded, bytes_downloaded,
		       estimated_size, duration_ms, COALESCE(error, ''), started_at, finished_at
		FROM job_history
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	observe("list_jobs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var startedAt, finishedAt int64
		if err := rows.Scan(&e.JobID, &e.SourcePath, &e.Status, &e.BytesTranscoded,
			&e.BytesDownloaded, &e.EstimatedSize, &e.Duration, &e.Error,
			&startedAt, &finishedAt); err != nil {
			return nil, err
		}
		e.StartedAt = time.Unix(startedAt, 0)
		e.FinishedAt = time.Unix(finishedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes history entries older than the retention window and
// returns the number of rows removed.
func (d *Database) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := d.db.ExecContext(opCtx,
		`DELETE FROM job_history WHERE finished_at < ?`, cutoff)
	observe("prune", start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
