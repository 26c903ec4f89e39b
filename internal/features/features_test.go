package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/ingest"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/staging"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func cleanTable(t *testing.T, customers ...testutil.Customer) *table.Table {
	t.Helper()
	batch := &ingest.RawBatch{Source: "test.csv", Header: testutil.TelcoHeader}
	for _, c := range customers {
		batch.Records = append(batch.Records, c.Record())
	}
	typed, _, err := ingest.NewEngine(schema.Telco, testutil.DiscardLogger()).Coerce(batch)
	require.NoError(t, err)
	clean, _ := staging.Canonicalize(typed)
	return clean
}

func TestTenureBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		months int64
		want   string
		ok     bool
	}{
		{months: -1, ok: false},
		{months: 0, want: schema.BucketNew, ok: true},
		{months: 5, want: schema.BucketNew, ok: true},
		{months: 6, want: schema.BucketEarly, ok: true},
		{months: 11, want: schema.BucketEarly, ok: true},
		{months: 12, want: schema.BucketStable, ok: true},
		{months: 23, want: schema.BucketStable, ok: true},
		{months: 24, want: schema.BucketLoyal, ok: true},
		{months: 72, want: schema.BucketLoyal, ok: true},
	}
	for _, tt := range tests {
		got, ok := TenureBucket(tt.months)
		assert.Equal(t, tt.ok, ok, "months=%d", tt.months)
		assert.Equal(t, tt.want, got, "months=%d", tt.months)
	}
}

func TestAvgMonthlyCharges(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AvgMonthlyCharges(123.4, 0))
	assert.Equal(t, 0.0, AvgMonthlyCharges(0, 0))
	assert.InDelta(t, 50.0, AvgMonthlyCharges(600, 12), 1e-12)
}

func TestDeriveFeatureTable(t *testing.T) {
	t.Parallel()

	senior := testutil.NewCustomer("C1")
	senior.SeniorCitizen = "1"
	senior.Tenure = "24"
	senior.TotalCharges = "1200"
	senior.StreamingTV = "Yes"

	fresh := testutil.NewCustomer("C2").WithoutInternet()
	fresh.Tenure = "0"
	fresh.TotalCharges = ""
	fresh.Contract = "One year"
	fresh.MultipleLines = "Yes"

	features, err := NewDeriver(testutil.DiscardLogger()).Derive(context.Background(), cleanTable(t, senior, fresh))
	require.NoError(t, err)

	assert.Equal(t, schema.FeatureColumns, features.ColumnNames())
	require.Equal(t, 2, features.Len())

	assert.Equal(t, "C1", features.Get(0, schema.ColCustomerID).Str())
	assert.Equal(t, int64(1), features.Get(0, schema.ColIsSenior).Int())
	assert.Equal(t, int64(1), features.Get(0, schema.ColHasPartner).Int())
	assert.Equal(t, int64(0), features.Get(0, schema.ColHasDependents).Int())
	assert.Equal(t, int64(1), features.Get(0, schema.ColIsMonthToMonth).Int())
	assert.Equal(t, "Month-to-month", features.Get(0, schema.ColContractType).Str())
	assert.Equal(t, int64(3), features.Get(0, schema.ColNumInternetAddons).Int(), "security, support and TV")
	assert.Equal(t, schema.BucketLoyal, features.Get(0, schema.ColTenureBucket).Str())
	assert.InDelta(t, 50.0, features.Get(0, schema.ColAvgMonthlyCharges).Float(), 1e-12)

	assert.Equal(t, int64(0), features.Get(1, schema.ColIsMonthToMonth).Int())
	assert.Equal(t, int64(0), features.Get(1, schema.ColHasInternetService).Int())
	assert.Equal(t, int64(1), features.Get(1, schema.ColHasMultipleLines).Int())
	assert.Equal(t, int64(0), features.Get(1, schema.ColNumInternetAddons).Int())
	assert.Equal(t, schema.BucketNew, features.Get(1, schema.ColTenureBucket).Str())
	assert.Equal(t, 0.0, features.Get(1, schema.ColTotalCharges).Float(), "missing total is billed as zero")
	assert.Equal(t, 0.0, features.Get(1, schema.ColAvgMonthlyCharges).Float())
	assert.False(t, features.Get(1, schema.ColAvgMonthlyCharges).IsNull())
}

func TestDeriveKeepsCleanOrderAndRowCount(t *testing.T) {
	t.Parallel()

	clean := cleanTable(t, testutil.Cohort(200)...)
	features, err := NewDeriver(testutil.DiscardLogger()).Derive(context.Background(), clean)
	require.NoError(t, err)

	require.Equal(t, clean.Len(), features.Len())
	for i := 0; i < clean.Len(); i++ {
		assert.Equal(t, clean.Get(i, schema.ColCustomerID), features.Get(i, schema.ColCustomerID))
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	t.Parallel()

	clean := cleanTable(t, testutil.Cohort(100)...)
	d := NewDeriver(testutil.DiscardLogger())

	a, err := d.Derive(context.Background(), clean)
	require.NoError(t, err)
	b, err := d.Derive(context.Background(), clean)
	require.NoError(t, err)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestDeriveCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDeriver(testutil.DiscardLogger()).Derive(ctx, cleanTable(t, testutil.Cohort(5)...))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeriveMissingColumn(t *testing.T) {
	t.Parallel()

	clean := cleanTable(t, testutil.Cohort(5)...).Drop(schema.ColContract)
	_, err := NewDeriver(testutil.DiscardLogger()).Derive(context.Background(), clean)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
}

func group(t *testing.T, col string, keys ...string) *table.Table {
	t.Helper()
	g := table.MustNew(
		table.Column{Name: schema.ColCustomerID, Kind: table.KindString},
		table.Column{Name: col, Kind: table.KindInt},
	)
	for i, k := range keys {
		require.NoError(t, g.AppendRow(table.Str(k), table.Int(int64(i))))
	}
	return g
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := group(t, "ignored", "A", "B", "C").Drop("ignored")

	t.Run("left anchored", func(t *testing.T) {
		t.Parallel()
		out, err := Merge(base, []string{"x", "y"}, []*table.Table{
			group(t, "x", "C", "B", "A"),
			group(t, "y", "A", "B"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{schema.ColCustomerID, "x", "y"}, out.ColumnNames())
		assert.Equal(t, int64(2), out.Get(0, "x").Int())
		assert.Equal(t, int64(0), out.Get(2, "x").Int())
		assert.True(t, out.Get(2, "y").IsNull(), "key missing from a group yields nulls")
	})

	t.Run("duplicate key", func(t *testing.T) {
		t.Parallel()
		_, err := Merge(base, []string{"x"}, []*table.Table{group(t, "x", "A", "A", "B", "C")})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
		assert.Contains(t, err.Error(), "duplicate key")
	})

	t.Run("column collision", func(t *testing.T) {
		t.Parallel()
		_, err := Merge(base, []string{"x", "z"}, []*table.Table{
			group(t, "x", "A", "B", "C"),
			group(t, "x", "A", "B", "C"),
		})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
		assert.Contains(t, err.Error(), "produced by both")
	})
}
