package model

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Categorical is a one-hot encoded string column. Levels are sorted; a level
// unseen during fitting encodes as all zeros.
type Categorical struct {
	Column string   `json:"column"`
	Levels []string `json:"levels"`
}

// Numeric is a standardized numeric or boolean column.
type Numeric struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// Encoder turns a feature table into a design matrix: one-hot categoricals
// first, then standardized numerics.
type Encoder struct {
	Categorical []Categorical `json:"categorical"`
	Numeric     []Numeric     `json:"numeric"`
}

// excluded columns never become model inputs
var excluded = []string{schema.ColCustomerID, schema.ColChurn}

// FitEncoder learns levels, means and deviations from t. String columns are
// categorical; int, float and bool columns are numeric.
func FitEncoder(t *table.Table) (*Encoder, error) {
	enc := &Encoder{}
	for _, col := range t.Columns() {
		if slices.Contains(excluded, col.Name) {
			continue
		}
		switch col.Kind {
		case table.KindString:
			seen := make(map[string]struct{})
			for i := 0; i < t.Len(); i++ {
				if v := t.Get(i, col.Name); !v.IsNull() {
					seen[v.Str()] = struct{}{}
				}
			}
			levels := make([]string, 0, len(seen))
			for l := range seen {
				levels = append(levels, l)
			}
			slices.Sort(levels)
			enc.Categorical = append(enc.Categorical, Categorical{Column: col.Name, Levels: levels})
		default:
			x, err := numericColumn(t, col.Name)
			if err != nil {
				return nil, err
			}
			mean, std := stat.PopMeanStdDev(x, nil)
			if std == 0 || math.IsNaN(std) {
				std = 1
			}
			enc.Numeric = append(enc.Numeric, Numeric{Column: col.Name, Mean: mean, Std: std})
		}
	}
	if enc.Width() == 0 {
		return nil, fmt.Errorf("no feature columns found")
	}
	return enc, nil
}

// Width is the number of design matrix columns.
func (e *Encoder) Width() int {
	n := len(e.Numeric)
	for _, c := range e.Categorical {
		n += len(c.Levels)
	}
	return n
}

// Names returns the design matrix column names, categoricals as column=level.
func (e *Encoder) Names() []string {
	names := make([]string, 0, e.Width())
	for _, c := range e.Categorical {
		for _, l := range c.Levels {
			names = append(names, c.Column+"="+l)
		}
	}
	for _, n := range e.Numeric {
		names = append(names, n.Column)
	}
	return names
}

// Transform encodes t. Every column the encoder was fitted on must be present;
// nulls are not accepted.
func (e *Encoder) Transform(t *table.Table) (*mat.Dense, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("cannot encode an empty table")
	}
	x := mat.NewDense(t.Len(), e.Width(), nil)

	offset := 0
	for _, c := range e.Categorical {
		col, ok := t.Column(c.Column)
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", c.Column)
		}
		if col.Kind != table.KindString {
			return nil, fmt.Errorf("feature column %q is %s, want string", c.Column, col.Kind)
		}
		for i := 0; i < t.Len(); i++ {
			v := t.Get(i, c.Column)
			if v.IsNull() {
				return nil, fmt.Errorf("null in feature column %q at row %d", c.Column, i)
			}
			if j, found := slices.BinarySearch(c.Levels, v.Str()); found {
				x.Set(i, offset+j, 1)
			}
		}
		offset += len(c.Levels)
	}

	for _, n := range e.Numeric {
		values, err := numericColumn(t, n.Column)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			x.Set(i, offset, (v-n.Mean)/n.Std)
		}
		offset++
	}
	return x, nil
}

func numericColumn(t *table.Table, name string) ([]float64, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("missing feature column %q", name)
	}
	out := make([]float64, t.Len())
	for i := range out {
		v := t.Get(i, name)
		if v.IsNull() {
			return nil, fmt.Errorf("null in feature column %q at row %d", name, i)
		}
		if v.Kind() == table.KindBool {
			if v.Bool() {
				out[i] = 1
			}
			continue
		}
		n, ok := v.Number()
		if !ok {
			return nil, fmt.Errorf("feature column %q is not numeric", name)
		}
		out[i] = n
	}
	return out, nil
}
