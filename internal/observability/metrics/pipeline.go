package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for pipeline stages and gates.
type PipelineMetrics struct {
	registry *prometheus.Registry

	stageRunsTotal       *prometheus.CounterVec
	stageDurationSeconds *prometheus.HistogramVec
	stageRows            *prometheus.GaugeVec

	gateChecksTotal     *prometheus.CounterVec
	gateViolationsTotal *prometheus.CounterVec

	coercionAnomaliesTotal *prometheus.CounterVec
	errorsTotal            *prometheus.CounterVec

	datasetChurnRate *prometheus.GaugeVec
	modelScore       *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.stageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_stage_runs_total",
			Help: "Total number of pipeline stage runs",
		},
		[]string{"stage", "status"},
	)

	m.stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churnprep_stage_duration_seconds",
			Help:    "Time taken by pipeline stages",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"stage"},
	)

	m.stageRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churnprep_snapshot_rows",
			Help: "Rows in the most recently produced snapshot",
		},
		[]string{"snapshot"},
	)

	m.gateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_gate_checks_total",
			Help: "Total number of gate checks evaluated",
		},
		[]string{"gate", "check", "result"}, // result: passed, failed
	)

	m.gateViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_gate_violations_total",
			Help: "Total number of evidence rows reported by failing checks",
		},
		[]string{"gate", "check"},
	)

	m.coercionAnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_coercion_anomalies_total",
			Help: "Total number of tolerant coercions that produced nulls",
		},
		[]string{"field"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnprep_errors_total",
			Help: "Total number of errors built, by component and category",
		},
		[]string{"component", "category"},
	)

	m.datasetChurnRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churnprep_dataset_churn_rate",
			Help: "Share of churned customers per labeled dataset",
		},
		[]string{"dataset"},
	)

	m.modelScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churnprep_model_validation_score",
			Help: "Validation metrics of the baseline classifier",
		},
		[]string{"metric"}, // metric: roc_auc, average_precision, accuracy
	)
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.stageRunsTotal.Describe(ch)
	m.stageDurationSeconds.Describe(ch)
	m.stageRows.Describe(ch)
	m.gateChecksTotal.Describe(ch)
	m.gateViolationsTotal.Describe(ch)
	m.coercionAnomaliesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.datasetChurnRate.Describe(ch)
	m.modelScore.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.stageRunsTotal.Collect(ch)
	m.stageDurationSeconds.Collect(ch)
	m.stageRows.Collect(ch)
	m.gateChecksTotal.Collect(ch)
	m.gateViolationsTotal.Collect(ch)
	m.coercionAnomaliesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.datasetChurnRate.Collect(ch)
	m.modelScore.Collect(ch)
}

// RecordStage records a finished stage run
func (m *PipelineMetrics) RecordStage(stage string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.stageRunsTotal.WithLabelValues(stage, status).Inc()
	m.stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetSnapshotRows updates the row gauge of a snapshot
func (m *PipelineMetrics) SetSnapshotRows(snapshot string, rows int) {
	m.stageRows.WithLabelValues(snapshot).Set(float64(rows))
}

// CheckCompleted records one gate check; it satisfies validate.Observer.
func (m *PipelineMetrics) CheckCompleted(gate, check string, passed bool, violations int) {
	result := StatusPassed
	if !passed {
		result = StatusFailed
		m.gateViolationsTotal.WithLabelValues(gate, check).Add(float64(violations))
	}
	m.gateChecksTotal.WithLabelValues(gate, check, result).Inc()
}

// RecordCoercionAnomalies adds the null-producing coercions of a field
func (m *PipelineMetrics) RecordCoercionAnomalies(field string, count int) {
	m.coercionAnomaliesTotal.WithLabelValues(field).Add(float64(count))
}

// RecordError counts a built error
func (m *PipelineMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}

// SetChurnRate updates the churn rate gauge of a labeled dataset
func (m *PipelineMetrics) SetChurnRate(dataset string, rate float64) {
	m.datasetChurnRate.WithLabelValues(dataset).Set(rate)
}

// SetModelScore updates a validation metric of the baseline classifier
func (m *PipelineMetrics) SetModelScore(metric string, value float64) {
	m.modelScore.WithLabelValues(metric).Set(value)
}
