// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - CACHE_DIR: Path to the transcode output cache directory (default: /cache)
//   - DATABASE_DIR: Path to the job-history database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - HISTORY_ENABLED: Record finished jobs in the history database (default: true)
//   - HISTORY_RETENTION: How long finished jobs are kept as Go duration (default: 720h)
//   - POLL_INTERVAL: Stream poll interval while waiting for ffmpeg output (default: 50ms)
//   - STREAM_TIMEOUT: Per-read timeout for tail-following streams (default: 30s)
//   - TRANSCODE_WORKERS: Override for the concurrent ffmpeg job limit
//   - API_KEY_HASH: bcrypt hash of the API key (empty disables authentication)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// # Directory Setup
//
// The package validates and creates required directories:
//   - Database directory: Required when history is enabled, must be writable
//   - Cache directory: Optional, transcoding is disabled when not writable
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
package startup
