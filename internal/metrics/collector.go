package metrics

import (
	"time"

	"tailcast/internal/logging"
)

// StatsProvider reports point-in-time server statistics for gauges.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics.
type Stats struct {
	ActiveJobs     int
	CacheSizeBytes int64
}

// Collector periodically collects and updates gauge metrics.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	JobsActive.Set(float64(stats.ActiveJobs))
	CacheSizeBytes.Set(float64(stats.CacheSizeBytes))

	logging.Debug("Metrics collected: activeJobs=%d, cacheSize=%d",
		stats.ActiveJobs, stats.CacheSizeBytes)
}
