package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"tailcast/internal/logging"
	"tailcast/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database records the history of finished transcode jobs. Live job
// state stays in memory with the transcoder; only terminal jobs land
// here, so operators can answer "what ran last night and how much got
// downloaded" after the processes are long gone.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the history database at dbPath. The parent
// directory must exist and be writable. Opening retries with backoff:
// on shared volumes a previous instance's lock can take a moment to
// clear during rolling restarts.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("History database path: %s", dbPath)

	// WAL mode and a busy timeout prevent "database is locked" errors
	// when the status endpoints read while a job finish writes.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Info("History database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS job_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		source_path TEXT NOT NULL,
		status TEXT NOT NULL,
		bytes_transcoded INTEGER NOT NULL DEFAULT 0,
		bytes_downloaded INTEGER NOT NULL DEFAULT 0,
		estimated_size INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_job_history_started_at ON job_history(started_at);
	CREATE INDEX IF NOT EXISTS idx_job_history_status ON job_history(status);
	`

	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(opCtx, schema)
	observe("initialize_schema", start, err)
	return err
}

// Ping verifies the database connection is still usable.
func (d *Database) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(opCtx)
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	return d.db.Close()
}

// observe records query metrics for one operation.
func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.HistoryQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.HistoryQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
