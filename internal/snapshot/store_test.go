package snapshot

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/testutil"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	cfg := conf.StoreSettings{
		Driver:   conf.DriverSQLite,
		SQLite:   conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "snapshots.db")},
		CacheTTL: ttl,
	}
	s, err := Open(t.Context(), cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func featureTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.MustNew(
		table.Column{Name: "customer_id", Kind: table.KindString},
		table.Column{Name: "tenure", Kind: table.KindInt},
		table.Column{Name: "total_charges", Kind: table.KindFloat},
		table.Column{Name: "has_partner", Kind: table.KindBool},
	)
	require.NoError(t, tbl.AppendRow(table.Str("7590-VHVEG"), table.Int(1), table.Float(29.85), table.Bool(true)))
	require.NoError(t, tbl.AppendRow(table.Str("5575-GNVDE"), table.Int(34), table.Null(table.KindFloat), table.Bool(false)))
	require.NoError(t, tbl.AppendRow(table.Str("3668-QPYBK"), table.Int(0), table.Float(math.NaN()), table.Null(table.KindBool)))
	return tbl
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	tbl := featureTable(t)
	runID := uuid.NewString()

	saved, err := s.Save(t.Context(), NameFeatures, runID, tbl)
	require.NoError(t, err)
	assert.Equal(t, NameFeatures, saved.Name)
	assert.Equal(t, runID, saved.RunID)
	assert.Equal(t, 3, saved.Rows)
	assert.Equal(t, 4, saved.Columns)

	want, err := tbl.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, want, saved.Checksum)

	loaded, info, err := s.Load(t.Context(), NameFeatures)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded), "loaded snapshot differs from saved table")
	assert.Equal(t, saved.Checksum, info.Checksum)
	assert.True(t, loaded.Get(1, "total_charges").IsNull())
	assert.True(t, math.IsNaN(loaded.Get(2, "total_charges").Float()))
}

func TestSaveEmptyTable(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	empty := table.MustNew(table.Column{Name: "customer_id", Kind: table.KindString})

	info, err := s.Save(t.Context(), NameValidation, "run", empty)
	require.NoError(t, err)
	assert.Zero(t, info.Rows)

	loaded, _, err := s.Load(t.Context(), NameValidation)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
	assert.Equal(t, []string{"customer_id"}, loaded.ColumnNames())
}

func TestSaveReplacesExistingSnapshot(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, time.Minute)
	tbl := featureTable(t)

	_, err := s.Save(t.Context(), NameTrain, "first", tbl)
	require.NoError(t, err)
	_, _, err = s.Load(t.Context(), NameTrain) // populate the cache
	require.NoError(t, err)

	smaller := tbl.Take([]int{0})
	_, err = s.Save(t.Context(), NameTrain, "second", smaller)
	require.NoError(t, err)

	loaded, info, err := s.Load(t.Context(), NameTrain)
	require.NoError(t, err)
	assert.Equal(t, "second", info.RunID)
	assert.Equal(t, 1, loaded.Len())

	list, err := s.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, NameTrain, list[0].Name)

	var rows int64
	require.NoError(t, s.db.Model(&SnapshotRow{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "rows of the replaced snapshot must be removed")
}

func TestLoadMissingSnapshot(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	_, _, err := s.Load(t.Context(), NameInference)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, time.Minute)
	tbl := featureTable(t)
	_, err := s.Save(t.Context(), NameClean, "run", tbl)
	require.NoError(t, err)

	first, _, err := s.Load(t.Context(), NameClean)
	require.NoError(t, err)
	require.NoError(t, first.Set(0, "tenure", table.Int(99)))

	second, _, err := s.Load(t.Context(), NameClean)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Get(0, "tenure").Int())
}

func TestLoadDetectsTampering(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	_, err := s.Save(t.Context(), NameRaw, "run", featureTable(t))
	require.NoError(t, err)

	require.NoError(t, s.db.Model(&SnapshotRow{}).
		Where("position = ?", 0).
		Update("payload", `["7590-VHVEG",2,"29.85",true]`).Error)

	_, _, err = s.Load(t.Context(), NameRaw)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
	assert.Contains(t, err.Error(), "checksum")
}

func TestDeleteSnapshot(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, time.Minute)
	_, err := s.Save(t.Context(), NamePredictions, "run", featureTable(t))
	require.NoError(t, err)
	_, _, err = s.Load(t.Context(), NamePredictions)
	require.NoError(t, err)

	require.NoError(t, s.Delete(t.Context(), NamePredictions))
	require.NoError(t, s.Delete(t.Context(), NamePredictions), "deleting twice is a no-op")

	_, _, err = s.Load(t.Context(), NamePredictions)
	assert.True(t, errors.IsNotFound(err))
}

func TestListOrdersByName(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	for _, name := range []string{NameValidation, NameFeatures, NameTrain} {
		_, err := s.Save(t.Context(), name, "run", featureTable(t))
		require.NoError(t, err)
	}

	list, err := s.List(t.Context())
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, info := range list {
		names[i] = info.Name
	}
	assert.Equal(t, []string{NameFeatures, NameTrain, NameValidation}, names)
}

func TestOpenInMemory(t *testing.T) {
	t.Parallel()

	s, err := Open(t.Context(), conf.StoreSettings{
		Driver: conf.DriverSQLite,
		SQLite: conf.SQLiteSettings{Path: MemoryPath},
	}, testutil.DiscardLogger())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Save(context.Background(), NameFeatures, "run", featureTable(t))
	require.NoError(t, err)
	loaded, _, err := s.Load(context.Background(), NameFeatures)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(t.Context(), conf.StoreSettings{Driver: "postgres"}, testutil.DiscardLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSaveHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Save(ctx, NameFeatures, "run", featureTable(t))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}
