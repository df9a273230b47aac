// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	CycleRunsTotal    *prometheus.CounterVec
	CycleDuration     *prometheus.HistogramVec
	KeysProcessed     *prometheus.CounterVec
	RowsWritten       *prometheus.CounterVec
	CheckpointLag     *prometheus.GaugeVec
	LastSuccessfulRun *prometheus.GaugeVec

	// Provider metrics
	FetchErrors *prometheus.CounterVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bloomdash"
	}

	return &Metrics{
		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cycle_runs_total",
			Help:      "Total number of ingestion cycles by domain and status",
		}, []string{"domain", "status"}),
		CycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cycle_duration_seconds",
			Help:      "Ingestion cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"domain"}),
		KeysProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "keys_processed_total",
			Help:      "Total number of keys processed by domain and status",
		}, []string{"domain", "status"}),
		RowsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_written_total",
			Help:      "Total number of dataset rows durably written by domain",
		}, []string{"domain"}),
		CheckpointLag: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "checkpoint_lag_days",
			Help:      "Days between the checkpoint date and now, per key",
		}, []string{"domain", "key"}),
		LastSuccessfulRun: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix timestamp of the last fully successful cycle per domain",
		}, []string{"domain"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_errors_total",
			Help:      "Total number of provider fetch errors by domain",
		}, []string{"domain"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of storage errors by domain",
		}, []string{"domain"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
