package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/snapshot"
	"github.com/churnlab/churnprep/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand(&conf.Context{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommandPrintsReference(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)

	want, err := conf.DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

// Commands share the global viper instance, so this test does not run in parallel.
func TestRunAndListSnapshots(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "telco.csv")
	require.NoError(t, os.WriteFile(input, testutil.TelcoCSV(t, testutil.Cohort(60)...), 0o644))
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("logging:\n  default_level: error\n  console:\n    enabled: true\n    level: error\n"), 0o644))

	common := []string{
		"--config", configFile,
		"--input", input,
		"--db", filepath.Join(dir, "churnprep.db"),
		"--manifest", filepath.Join(dir, "manifest.yaml"),
	}

	_, err := execute(t, append([]string{"run"}, common...)...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "manifest.yaml"))

	out, err := execute(t, append([]string{"snapshots", "list"}, common...)...)
	require.NoError(t, err)
	for _, name := range []string{snapshot.NameRaw, snapshot.NameClean, snapshot.NameFeatures, snapshot.NameTrain} {
		assert.Contains(t, out, name)
	}

	_, err = execute(t, append([]string{"check"}, common...)...)
	require.NoError(t, err)
}
