package dataset

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/features"
	"github.com/churnlab/churnprep/internal/ingest"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/staging"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/testutil"
)

// stages returns the clean and feature tables of customers.
func stages(t *testing.T, customers ...testutil.Customer) (clean, feats *table.Table) {
	t.Helper()
	batch := &ingest.RawBatch{Source: "test.csv", Header: testutil.TelcoHeader}
	for _, c := range customers {
		batch.Records = append(batch.Records, c.Record())
	}
	typed, _, err := ingest.NewEngine(schema.Telco, testutil.DiscardLogger()).Coerce(batch)
	require.NoError(t, err)
	clean, _ = staging.Canonicalize(typed)
	feats, err = features.NewDeriver(testutil.DiscardLogger()).Derive(context.Background(), clean)
	require.NoError(t, err)
	return clean, feats
}

func keys(t *table.Table) []string {
	out := make([]string, t.Len())
	for i := range out {
		out[i] = t.Get(i, schema.ColCustomerID).Str()
	}
	return out
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	clean, feats := stages(t, testutil.Cohort(300)...)
	sets, err := NewAssembler(DefaultConfig(), testutil.DiscardLogger()).Assemble(feats, clean)
	require.NoError(t, err)

	// join losslessness
	assert.Equal(t, feats.Len(), sets.Train.Len()+sets.Validation.Len())
	assert.Equal(t, 60, sets.Validation.Len())

	// disjoint partitions
	trainKeys := make(map[string]bool)
	for _, k := range keys(sets.Train) {
		trainKeys[k] = true
	}
	for _, k := range keys(sets.Validation) {
		assert.False(t, trainKeys[k], "key %s in both partitions", k)
	}

	// inference purity
	assert.False(t, sets.Inference.HasColumn(LabelColumn))
	assert.Equal(t, feats.ColumnNames(), sets.Inference.ColumnNames())
	assert.Equal(t, feats.Len(), sets.Inference.Len())

	// stratification: cohort churn rate is one third
	assert.InDelta(t, ClassBalance(sets.Train).Rate(), ClassBalance(sets.Validation).Rate(), 0.01)

	// label domain
	for _, s := range []*table.Table{sets.Train, sets.Validation} {
		for i := 0; i < s.Len(); i++ {
			assert.Contains(t, []int64{0, 1}, s.Get(i, LabelColumn).Int())
		}
	}
}

func TestAssembleIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	clean, feats := stages(t, testutil.Cohort(120)...)
	run := func(seed uint64) []string {
		cfg := DefaultConfig()
		cfg.Seed = seed
		sets, err := NewAssembler(cfg, testutil.DiscardLogger()).Assemble(feats, clean)
		require.NoError(t, err)
		return keys(sets.Validation)
	}

	assert.Equal(t, run(42), run(42))
	assert.NotEqual(t, run(42), run(7))
}

func TestPartitionsKeepFeatureOrder(t *testing.T) {
	t.Parallel()

	clean, feats := stages(t, testutil.Cohort(50)...)
	sets, err := NewAssembler(DefaultConfig(), testutil.DiscardLogger()).Assemble(feats, clean)
	require.NoError(t, err)

	position := make(map[string]int)
	for i, k := range keys(feats) {
		position[k] = i
	}
	for _, s := range []*table.Table{sets.Train, sets.Validation} {
		ks := keys(s)
		for i := 1; i < len(ks); i++ {
			assert.Less(t, position[ks[i-1]], position[ks[i]])
		}
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	churner := testutil.NewCustomer("C1")
	churner.Churn = "Yes"
	clean, _ := stages(t, churner, testutil.NewCustomer("C2"))

	labels, err := Labels(clean)
	require.NoError(t, err)
	assert.Equal(t, []string{schema.ColCustomerID, LabelColumn}, labels.ColumnNames())
	assert.Equal(t, int64(1), labels.Get(0, LabelColumn).Int())
	assert.Equal(t, int64(0), labels.Get(1, LabelColumn).Int())
}

func TestJoinLabelsIntegrity(t *testing.T) {
	t.Parallel()

	clean, feats := stages(t, testutil.Cohort(6)...)
	labels, err := Labels(clean)
	require.NoError(t, err)

	t.Run("dropped rows", func(t *testing.T) {
		t.Parallel()
		_, err := JoinLabels(feats, labels.Take([]int{0, 1, 2, 3, 4}))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
		assert.Contains(t, err.Error(), "dropped 1 rows")
	})

	t.Run("duplicate label key", func(t *testing.T) {
		t.Parallel()
		_, err := JoinLabels(feats, labels.Take([]int{0, 1, 2, 3, 4, 5, 5}))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIntegrityViolation))
		assert.Contains(t, err.Error(), "duplicate key")
	})

	t.Run("label already present", func(t *testing.T) {
		t.Parallel()
		labeled, err := JoinLabels(feats, labels)
		require.NoError(t, err)
		_, err = JoinLabels(labeled, labels)
		require.Error(t, err)
	})
}

func TestStratifiedSplitSmallClasses(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(
		table.Column{Name: schema.ColCustomerID, Kind: table.KindString},
		table.Column{Name: LabelColumn, Kind: table.KindInt},
	)
	for i, label := range []int64{0, 0, 0, 0, 0, 0, 0, 0, 1, 1} {
		require.NoError(t, tbl.AppendRow(table.Str(string(rune('a'+i))), table.Int(label)))
	}

	train, val, err := StratifiedSplit(tbl, LabelColumn, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, val, 2, "round(1.6)=2 negatives, round(0.4)=0 positives")
	assert.Len(t, train, 8)
	for _, i := range val {
		assert.Equal(t, int64(0), tbl.Get(i, LabelColumn).Int())
	}
}

func TestAssembleRejectsBadFraction(t *testing.T) {
	t.Parallel()

	clean, feats := stages(t, testutil.Cohort(5)...)
	_, err := NewAssembler(Config{Seed: 1, ValidationFraction: 1}, testutil.DiscardLogger()).Assemble(feats, clean)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestBalanceRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Balance{}.Rate())
	assert.False(t, math.IsNaN(Balance{}.Rate()))
	assert.InDelta(t, 0.25, Balance{Rows: 8, Positives: 2}.Rate(), 1e-12)
}
