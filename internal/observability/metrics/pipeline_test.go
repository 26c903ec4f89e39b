package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompletedCountsViolations(t *testing.T) {
	t.Parallel()

	m, err := NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.CheckCompleted("datasets", "partition_key_overlap", false, 4)
	m.CheckCompleted("datasets", "partition_key_overlap", false, 2)
	m.CheckCompleted("datasets", "label_domain", true, 0)

	assert.InDelta(t, 6, testutil.ToFloat64(m.gateViolationsTotal.WithLabelValues("datasets", "partition_key_overlap")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.gateChecksTotal.WithLabelValues("datasets", "partition_key_overlap", StatusFailed)), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.gateChecksTotal.WithLabelValues("datasets", "label_domain", StatusPassed)), 1e-9)
}

func TestRecordErrorAndModelScore(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.RecordError("ingest", "schema-coercion")
	m.SetModelScore("roc_auc", 0.84)

	expected := `
# HELP churnprep_errors_total Total number of errors built, by component and category
# TYPE churnprep_errors_total counter
churnprep_errors_total{category="schema-coercion",component="ingest"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "churnprep_errors_total"))
	assert.InDelta(t, 0.84, testutil.ToFloat64(m.modelScore.WithLabelValues("roc_auc")), 1e-9)
}

func TestSnapshotMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewSnapshotMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordOperation(OpSave, 5*time.Millisecond, nil)
	m.RecordOperation(OpLoad, time.Millisecond, assert.AnError)
	m.RecordRowsWritten("features", 100)
	m.RecordRowsWritten("features", 50)

	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpSave, StatusSuccess)), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpLoad, StatusError)), 1e-9)
	assert.InDelta(t, 150, testutil.ToFloat64(m.rowsWritten.WithLabelValues("features")), 1e-9)
}

func TestRecordStageObservesDuration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.RecordStage(StageFeatures, 3*time.Millisecond, nil)
	m.RecordStage(StageFeatures, 40*time.Millisecond, nil)
	m.RecordStage(StageDatasets, time.Millisecond, assert.AnError)

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "churnprep_stage_duration_seconds" {
			hist = mf
		}
	}
	require.NotNil(t, hist)
	require.Equal(t, dto.MetricType_HISTOGRAM, hist.GetType())

	counts := make(map[string]uint64)
	for _, metric := range hist.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == "stage" {
				counts[lp.GetValue()] = metric.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, map[string]uint64{StageFeatures: 2, StageDatasets: 1}, counts)

	assert.InDelta(t, 1, testutil.ToFloat64(m.stageRunsTotal.WithLabelValues(StageDatasets, StatusError)), 1e-9)
}
