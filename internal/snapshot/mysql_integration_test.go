//go:build integration && mysql

// Run with: go test -tags="integration,mysql" ./internal/snapshot/...
// Requires a Docker daemon for the MySQL container.
package snapshot

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/testutil"
)

func startMySQL(t *testing.T) conf.StoreSettings {
	t.Helper()

	ctx := t.Context()
	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("churnprep_test"),
		tcmysql.WithUsername("churnprep"),
		tcmysql.WithPassword("churnprep"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "failed to start MySQL container")

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return conf.StoreSettings{
		Driver: conf.DriverMySQL,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     portNum,
			Username: "churnprep",
			Password: "churnprep",
			Database: "churnprep_test",
		},
	}
}

func TestMySQLStoreRoundTrip(t *testing.T) {
	cfg := startMySQL(t)

	s, err := Open(t.Context(), cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tbl := featureTable(t)
	_, err = s.Save(t.Context(), NameFeatures, "first", tbl)
	require.NoError(t, err)
	_, err = s.Save(t.Context(), NameFeatures, "second", tbl)
	require.NoError(t, err)

	loaded, info, err := s.Load(t.Context(), NameFeatures)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
	assert.Equal(t, "second", info.RunID)

	list, err := s.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
