package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tailcast_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tailcast_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tailcast_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Transcode job metrics
var (
	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tailcast_jobs_active",
			Help: "Number of ffmpeg transcode jobs currently running",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tailcast_jobs_total",
			Help: "Total number of transcode jobs by final status",
		},
		[]string{"status"},
	)

	BytesTranscoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tailcast_bytes_transcoded_total",
			Help: "Total output bytes produced by ffmpeg across all jobs",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tailcast_cache_size_bytes",
			Help: "Total size of transcode output files in the cache directory",
		},
	)
)

// Stream metrics
var (
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tailcast_streams_active",
			Help: "Number of tail-following streams currently attached to clients",
		},
	)

	StreamBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tailcast_stream_bytes_served_total",
			Help: "Total bytes served to streaming clients",
		},
	)

	StreamPollWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tailcast_stream_poll_waits_total",
			Help: "Total waits spent polling for the producer to append more bytes",
		},
	)

	StreamsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tailcast_streams_completed_total",
			Help: "Total streams ended, by outcome",
		},
		[]string{"outcome"}, // "finished", "client_gone", "timeout", "error"
	)

	StreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tailcast_stream_duration_seconds",
			Help:    "Wall-clock duration of client streams",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
		},
	)
)

// History store metrics
var (
	HistoryQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tailcast_history_queries_total",
			Help: "Total number of job-history database queries",
		},
		[]string{"operation", "status"},
	)

	HistoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tailcast_history_query_duration_seconds",
			Help:    "Job-history database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)
