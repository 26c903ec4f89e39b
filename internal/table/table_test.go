package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()

	tbl, err := New(
		Column{Name: "customer_id", Kind: KindString},
		Column{Name: "tenure", Kind: KindInt},
		Column{Name: "total_charges", Kind: KindFloat},
		Column{Name: "churn", Kind: KindBool},
	)
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Str("0001-A"), Int(0), Null(KindFloat), Bool(false)))
	require.NoError(t, tbl.AppendRow(Str("0002-B"), Int(12), Float(1024.5), Bool(true)))
	return tbl
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	t.Parallel()

	_, err := New(Column{Name: "a", Kind: KindString}, Column{Name: "a", Kind: KindInt})
	require.Error(t, err)

	_, err = New(Column{Kind: KindString})
	require.Error(t, err)
}

func TestAppendRowChecksKinds(t *testing.T) {
	t.Parallel()

	tbl := MustNew(Column{Name: "tenure", Kind: KindInt})
	require.Error(t, tbl.AppendRow(Str("12")))
	require.Error(t, tbl.AppendRow(Int(1), Int(2)))
	require.NoError(t, tbl.AppendRow(Null(KindInt)))
	assert.True(t, tbl.Get(0, "tenure").IsNull())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	clone := tbl.Clone()
	require.NoError(t, clone.Set(0, "customer_id", Str("changed")))

	assert.Equal(t, "0001-A", tbl.Get(0, "customer_id").Str())
	assert.Equal(t, "changed", clone.Get(0, "customer_id").Str())
	assert.False(t, tbl.Equal(clone))
}

func TestSelectDropTake(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)

	sel, err := tbl.Select("tenure", "customer_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenure", "customer_id"}, sel.ColumnNames())
	assert.Equal(t, int64(12), sel.Get(1, "tenure").Int())

	_, err = tbl.Select("missing")
	require.Error(t, err)

	dropped := tbl.Drop("churn", "not-there")
	assert.False(t, dropped.HasColumn("churn"))
	assert.Equal(t, 2, dropped.Len())

	taken := tbl.Take([]int{1})
	require.Equal(t, 1, taken.Len())
	assert.Equal(t, "0002-B", taken.Get(0, "customer_id").Str())
}

func TestSetRejectsWrongKind(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	require.Error(t, tbl.Set(0, "tenure", Float(1)))
	require.Error(t, tbl.Set(0, "nope", Int(1)))
}

func TestRowCodecRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	cols := tbl.Columns()

	row := []Value{Str("x"), Int(-3), Float(math.Inf(1)), Null(KindBool)}
	data, err := EncodeRow(row)
	require.NoError(t, err)

	decoded, err := DecodeRow(cols, data)
	require.NoError(t, err)
	for i := range row {
		assert.True(t, row[i].Equal(decoded[i]), "cell %d", i)
	}

	_, err = DecodeRow(cols[:2], data)
	require.Error(t, err)
}

func TestFingerprintIsStable(t *testing.T) {
	t.Parallel()

	a := sampleTable(t)
	b := sampleTable(t)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	require.NoError(t, b.Set(1, "total_charges", Float(1024.75)))
	fc, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestValueHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, Int(3).Finite())
	assert.False(t, Float(math.NaN()).Finite())
	assert.False(t, Null(KindFloat).Finite())
	assert.False(t, Str("3").Finite())
	assert.Equal(t, "<null>", Null(KindString).String())
	assert.Equal(t, "2.5", Float(2.5).String())
	assert.True(t, KindInt.Numeric())
	assert.False(t, KindBool.Numeric())

	k, err := ParseKind("float")
	require.NoError(t, err)
	assert.Equal(t, KindFloat, k)
	_, err = ParseKind("decimal")
	require.Error(t, err)
}
