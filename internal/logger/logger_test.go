package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/logger"
)

func TestLevelsAreFiltered(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelWarn, time.UTC)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn", logger.String("column", "total_charges"))
	log.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "column=total_charges")
	assert.Contains(t, out, "visible error")
	assert.NotContains(t, out, "time=", "console output omits timestamps")
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC).
		Module("pipeline").
		Module("gate").
		With(logger.String("stage", "features"))

	log.Info("gate passed", logger.Int("checks", 8), logger.Float64("ratio", 0.123456))

	out := buf.String()
	assert.Contains(t, out, "module=pipeline.gate")
	assert.Contains(t, out, "stage=features")
	assert.Contains(t, out, "checks=8")
	assert.Contains(t, out, "ratio=0.123")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "run-42")
	log.WithContext(ctx).Info("stage started")

	assert.Contains(t, buf.String(), "trace_id=run-42")
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "churnprep.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("ingest").Info("coerced", logger.Int("rows", 3))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "coerced", record["msg"])
	assert.Equal(t, "ingest", record["module"])
	assert.InDelta(t, 3, record["rows"], 0)
	assert.True(t, strings.HasSuffix(record["time"].(string), "Z"))
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	out := logger.RenderTable(
		[]string{"customer_id", "online_security"},
		[][]string{{"0001-A", "Yes"}, {"0002-B", "No"}},
	)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "customer_id")
	assert.Contains(t, lines[2], "0001-A")
	assert.Contains(t, lines[3], "0002-B")
}

func TestTableTruncatesRows(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	rows := [][]string{{"a"}, {"b"}, {"c"}}
	logger.Table(log, logger.LogLevelError, "sample", []string{"id"}, rows, 3, 2)

	out := buf.String()
	assert.Contains(t, out, "rows=3")
	assert.Contains(t, out, "shown=2")
}
