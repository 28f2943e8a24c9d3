package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
)

// SyncMetricsCollector exports import pipeline outcomes to Prometheus
type SyncMetricsCollector struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	filesTotal    *prometheus.CounterVec
	sailingsTotal *prometheus.CounterVec
	stubsTotal    *prometheus.CounterVec
	cacheHitRate  prometheus.Gauge
	lastRunEpoch  prometheus.Gauge
}

// NewSyncMetricsCollector creates the import pipeline collector
func NewSyncMetricsCollector() *SyncMetricsCollector {
	return &SyncMetricsCollector{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total sync runs by final status",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Sync run duration distribution",
				Buckets:   []float64{1, 10, 30, 60, 300, 600, 1800, 3600, 7200},
			},
		),

		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "files_total",
				Help:      "Feed files seen by outcome (processed, skipped, failed)",
			},
			[]string{"outcome"},
		),

		sailingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sailings_total",
				Help:      "Sailings written by kind (created, updated)",
			},
			[]string{"kind"},
		),

		stubsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stubs_created_total",
				Help:      "Auto-created reference rows by kind",
			},
			[]string{"kind"},
		),

		cacheHitRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reference_cache_hit_rate",
				Help:      "Reference cache hit rate of the most recent run",
			},
		),

		lastRunEpoch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_run_completed_timestamp_seconds",
				Help:      "Unix time the most recent sync run finished",
			},
		),
	}
}

// Register registers all collectors with the global registry
func (c *SyncMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}
	collectors := []prometheus.Collector{
		c.runsTotal,
		c.runDuration,
		c.filesTotal,
		c.sailingsTotal,
		c.stubsTotal,
		c.cacheHitRate,
		c.lastRunEpoch,
	}
	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun exports one finished run's metrics
func (c *SyncMetricsCollector) RecordRun(status string, m ingestion.ImportMetrics, cacheHitRate float64) {
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(float64(m.DurationMs) / 1000.0)

	c.filesTotal.WithLabelValues("processed").Add(float64(m.FilesProcessed))
	c.filesTotal.WithLabelValues("skipped").Add(float64(m.FilesSkipped))
	c.filesTotal.WithLabelValues("failed").Add(float64(m.FilesFailed))

	c.sailingsTotal.WithLabelValues("created").Add(float64(m.SailingsCreated))
	c.sailingsTotal.WithLabelValues("updated").Add(float64(m.SailingsUpdated))

	c.stubsTotal.WithLabelValues("cruise_line").Add(float64(m.Stubs.CruiseLines))
	c.stubsTotal.WithLabelValues("ship").Add(float64(m.Stubs.Ships))
	c.stubsTotal.WithLabelValues("port").Add(float64(m.Stubs.Ports))
	c.stubsTotal.WithLabelValues("region").Add(float64(m.Stubs.Regions))

	c.cacheHitRate.Set(cacheHitRate)
	if m.CompletedAt != nil {
		c.lastRunEpoch.Set(float64(m.CompletedAt.Unix()))
	}
}
