// Package metrics defines the Prometheus metrics exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup result labels
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Dataset metrics
	DatasetLoadsTotal          *prometheus.CounterVec
	DatasetLoadDurationSeconds *prometheus.HistogramVec
	DatasetRecords             prometheus.Gauge

	// Lookup metrics
	LookupsTotal          *prometheus.CounterVec
	LookupMatchesTotal    *prometheus.CounterVec
	LookupDurationSeconds prometheus.Histogram

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		DatasetLoadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_lookup_dataset_loads_total",
				Help: "Total number of dataset load attempts by source and status",
			},
			[]string{"source", "status"}, // source: file, r2; status: success, error
		),

		DatasetLoadDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "program_lookup_dataset_load_duration_seconds",
				Help:    "Dataset read and decode duration in seconds by source",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		),

		DatasetRecords: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "program_lookup_dataset_records",
				Help: "Number of records in the cached dataset (0 until loaded)",
			},
		),

		LookupsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_lookup_lookups_total",
				Help: "Total number of program lookups by result",
			},
			[]string{"result"}, // result: found, not_found, invalid, error
		),

		LookupMatchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_lookup_matches_total",
				Help: "Total number of successful lookups by the key that matched",
			},
			[]string{"key"}, // key: course_code, program_name
		),

		LookupDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "program_lookup_lookup_duration_seconds",
				Help:    "Program lookup duration in seconds, including any cold dataset load",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_lookup_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: bad_request, not_found, internal
		),

		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_lookup_singleflight_dedup_total",
				Help: "Total number of deduplicated calls (callers that waited instead of executing)",
			},
			[]string{"module"}, // module: dataset
		),
	}

	return m
}

// RecordDatasetLoad records a dataset load attempt with status
func (m *Metrics) RecordDatasetLoad(source, status string, duration float64) {
	m.DatasetLoadsTotal.WithLabelValues(source, status).Inc()
	m.DatasetLoadDurationSeconds.WithLabelValues(source).Observe(duration)
}

// SetDatasetRecords records the size of the cached dataset
func (m *Metrics) SetDatasetRecords(count int) {
	m.DatasetRecords.Set(float64(count))
}

// RecordLookup records a lookup result and its duration
func (m *Metrics) RecordLookup(result string, duration float64) {
	m.LookupsTotal.WithLabelValues(result).Inc()
	m.LookupDurationSeconds.Observe(duration)
}

// RecordLookupMatch records which key satisfied a successful lookup
func (m *Metrics) RecordLookupMatch(key string) {
	m.LookupMatchesTotal.WithLabelValues(key).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordSingleflightDedup records a deduplicated call
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}
