package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for amsbridge
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Import Metrics
	ImportRecordsTotal  prometheus.CounterVec
	ImportBatchDuration prometheus.HistogramVec
	ImportChunksTotal   prometheus.CounterVec
	DirectorySize       prometheus.Gauge
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsbridge_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amsbridge_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "amsbridge_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsbridge_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsbridge_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Import Metrics
		ImportRecordsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsbridge_import_records_total",
				Help: "Import records processed by form, operation, and outcome",
			},
			[]string{"form", "operation", "outcome"},
		),
		ImportBatchDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amsbridge_import_batch_duration_seconds",
				Help:    "End-to-end import batch duration in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"form", "operation"},
		),
		ImportChunksTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsbridge_import_chunks_total",
				Help: "Import payload chunks dispatched by outcome",
			},
			[]string{"outcome"},
		),
		DirectorySize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "amsbridge_user_directory_size",
				Help: "Users in the most recently fetched directory",
			},
		),
	}
}

// RecordImport folds one finished batch into the import counters
func (m *MetricsRegistry) RecordImport(form, operation string, succeeded, failed int, seconds float64) {
	m.ImportRecordsTotal.WithLabelValues(form, operation, "succeeded").Add(float64(succeeded))
	m.ImportRecordsTotal.WithLabelValues(form, operation, "failed").Add(float64(failed))
	m.ImportBatchDuration.WithLabelValues(form, operation).Observe(seconds)
}
