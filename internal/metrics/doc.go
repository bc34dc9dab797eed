/*
Package metrics declares the Prometheus instrumentation for tailcast.

All metrics are registered with the default registry via promauto and
exposed on the /metrics endpoint. Three metric families matter most for
operating the server:

  - tailcast_jobs_*: ffmpeg job lifecycle — how many transcodes run,
    how they end, how many output bytes they produce.
  - tailcast_stream_*: the consumer side — bytes served, waits spent
    polling for the producer, stream outcomes (a high client_gone rate
    means viewers abandon downloads mid-flight, which also kills the
    corresponding transcodes).
  - tailcast_http_*: request-level counters and latencies, recorded by
    the middleware.

Call InitializeMetrics once at startup so every label combination is
present from the first scrape. The Collector refreshes gauges that need
periodic sampling, such as cache directory size.
*/
package metrics
