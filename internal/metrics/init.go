package metrics

// InitializeMetrics pre-populates all expected label combinations so
// that every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"finished", "failed", "canceled"} {
		JobsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"finished", "client_gone", "timeout", "error"} {
		StreamsCompleted.WithLabelValues(outcome)
	}

	for _, op := range []string{"initialize_schema", "record_job", "list_jobs", "prune"} {
		HistoryQueryTotal.WithLabelValues(op, "success")
		HistoryQueryTotal.WithLabelValues(op, "error")
		HistoryQueryDuration.WithLabelValues(op)
	}
}
