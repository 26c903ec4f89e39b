package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotMetrics contains Prometheus metrics for the snapshot store.
type SnapshotMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	rowsWritten       *prometheus.CounterVec
}

// NewSnapshotMetrics creates and registers new snapshot store metrics
func NewSnapshotMetrics(registry *prometheus.Registry) (*SnapshotMetrics, error) {
	m := &SnapshotMetrics{registry: registry}
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_snapshot_operations_total",
			Help: "Total number of snapshot store operations",
		},
		[]string{"operation", "status"},
	)
	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churnprep_snapshot_operation_duration_seconds",
			Help:    "Time taken by snapshot store operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"operation"},
	)
	m.rowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_snapshot_rows_written_total",
			Help: "Total number of snapshot rows written",
		},
		[]string{"snapshot"},
	)
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *SnapshotMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.rowsWritten.Describe(ch)
}

// Collect implements the Collector interface
func (m *SnapshotMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.rowsWritten.Collect(ch)
}

// RecordOperation records a snapshot store operation
func (m *SnapshotMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRowsWritten adds rows written for a snapshot
func (m *SnapshotMetrics) RecordRowsWritten(snapshot string, rows int) {
	m.rowsWritten.WithLabelValues(snapshot).Add(float64(rows))
}
