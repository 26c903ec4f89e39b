package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/snapshot"
	"github.com/churnlab/churnprep/internal/testutil"
)

func TestExecuteRecordsFailedRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dup := testutil.NewCustomer("C9999")
	input := filepath.Join(dir, "telco.csv")
	require.NoError(t, os.WriteFile(input, testutil.TelcoCSV(t, append(testutil.Cohort(20), dup, dup)...), 0o644))

	settings := testSettings()
	settings.Input.Path = input
	settings.Store.SQLite.Path = filepath.Join(dir, "snapshots.db")
	settings.Output.Manifest = filepath.Join(dir, "manifest.yaml")
	settings.Metrics.Textfile = filepath.Join(dir, "metrics", "churnprep.prom")

	err := Execute(context.Background(), settings, "run", func(ctx context.Context, p *Pipeline) error {
		return p.Run(ctx)
	})
	require.Error(t, err)

	m, err := snapshot.ReadManifest(afero.NewOsFs(), settings.Output.Manifest)
	require.NoError(t, err)
	assert.Equal(t, "run", m.Command)
	require.Len(t, m.Gates, 1)
	assert.Equal(t, []string{"customer_id_unique"}, m.Gates[0].Failed)
	require.Len(t, m.Snapshots, 1)
	assert.Equal(t, snapshot.NameRaw, m.Snapshots[0].Name)

	prom, err := os.ReadFile(settings.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `churnprep_stage_runs_total{stage="clean",status="error"} 1`)
}

func TestExecuteRejectsBadStore(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Store.Driver = "postgres"
	called := false
	err := Execute(context.Background(), settings, "run", func(context.Context, *Pipeline) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
