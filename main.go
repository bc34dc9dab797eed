package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailcast/internal/database"
	"tailcast/internal/handlers"
	"tailcast/internal/logging"
	"tailcast/internal/memory"
	"tailcast/internal/metrics"
	"tailcast/internal/middleware"
	"tailcast/internal/startup"
	"tailcast/internal/transcoder"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT before anything allocates in earnest
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize history database
	var db *database.Database
	if config.HistoryEnabled {
		dbStart := time.Now()
		db, err = database.New(context.Background(), config.DatabasePath)
		if err != nil {
			startup.LogFatal("Failed to initialize history database: %v", err)
		}
		defer db.Close()
		startup.LogDatabaseInit(time.Since(dbStart))

		// Prune old history periodically
		go func() {
			ticker := time.NewTicker(1 * time.Hour)
			for range ticker.C {
				if n, err := db.Prune(context.Background(), config.HistoryRetention); err != nil {
					logging.Warn("History prune failed: %v", err)
				} else if n > 0 {
					logging.Info("Pruned %d old history entries", n)
				}
			}
		}()
	}

	// Initialize transcoder
	startup.LogTranscoderInit(config.TranscodingEnabled)
	trans := transcoder.New(config.CacheDir, config.TranscodingEnabled, config.MaxJobs)

	// Record finished jobs in the history database
	if db != nil {
		trans.SetFinishHook(func(job *transcoder.Job) {
			entry := database.HistoryEntry{
				JobID:           job.ID,
				SourcePath:      job.SourcePath,
				Status:          string(job.Status()),
				BytesTranscoded: job.BytesTranscoded(),
				BytesDownloaded: job.BytesDownloaded(),
				EstimatedSize:   job.EstimatedSize,
				Duration:        job.Duration().Milliseconds(),
				StartedAt:       job.StartedAt,
				FinishedAt:      time.Now(),
			}
			if err := job.Err(); err != nil {
				entry.Error = err.Error()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := db.RecordJob(ctx, entry); err != nil {
				logging.Error("Failed to record job %s in history: %v", job.ID, err)
			}
		})
	}

	// Initialize handlers
	h := handlers.New(trans, db, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply middleware: auth innermost concern first, logging and
	// metrics observe every request including rejected ones.
	var handler http.Handler = router
	handler = middleware.Auth(middleware.DefaultAuthConfig(config.APIKeyHash))(handler)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	// Start the metrics server and collector
	var collector *metrics.Collector
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metrics.InitializeMetrics()

		collector = metrics.NewCollector(statsProvider{trans}, 15*time.Second)
		collector.Start()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create server. WriteTimeout stays zero: streams are long-lived
	// and bounded by the per-write timeout in the pump instead.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, trans, collector)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// statsProvider adapts the transcoder to the metrics collector.
type statsProvider struct {
	trans *transcoder.Transcoder
}

func (p statsProvider) GetStats() metrics.Stats {
	return metrics.Stats{
		ActiveJobs:     p.trans.ActiveCount(),
		CacheSizeBytes: p.trans.CacheSize(),
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transcode", h.StartTranscode).Methods("POST")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.CancelJob).Methods("DELETE")
	api.HandleFunc("/stream/{id}", h.StreamJob).Methods("GET")
	api.HandleFunc("/preview/{id}", h.GetPreview).Methods("GET")
	api.HandleFunc("/history", h.GetHistory).Methods("GET")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, trans *transcoder.Transcoder, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping transcode jobs")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcode jobs stopped")

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
