package validate

import (
	"slices"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// LabelColumn is the supervised target.
const LabelColumn = schema.ColChurn

// Dataset roles.
const (
	RoleTrain      = "train"
	RoleValidation = "validation"
	RoleInference  = "inference"
)

// Datasets is the assembled set the dataset gate inspects.
type Datasets struct {
	Train      *table.Table
	Validation *table.Table
	Inference  *table.Table
}

type roleTable struct {
	role    string
	t       *table.Table
	labeled bool
}

func (d Datasets) roles() []roleTable {
	return []roleTable{
		{role: RoleTrain, t: d.Train, labeled: true},
		{role: RoleValidation, t: d.Validation, labeled: true},
		{role: RoleInference, t: d.Inference},
	}
}

func (d Datasets) labeled() []roleTable {
	return d.roles()[:2]
}

// DatasetChecks returns the checks run once over an assembled dataset set.
func DatasetChecks() []Check[Datasets] {
	return []Check[Datasets]{
		{
			Name:     "dataset_required_columns",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "train and validation need customer_id and churn, inference needs customer_id",
			Eval: func(d Datasets) []Evidence {
				var out []Evidence
				for _, r := range d.roles() {
					cols := []string{KeyColumn}
					if r.labeled {
						cols = append(cols, LabelColumn)
					}
					out = append(out, missingColumns(r.t, r.role, cols...)...)
				}
				return out
			},
		},
		{
			Name:     "inference_label_absent",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "churn must not exist in the inference dataset",
			Eval: func(d Datasets) []Evidence {
				if !d.Inference.HasColumn(LabelColumn) {
					return nil
				}
				return []Evidence{{Column: LabelColumn, Value: "<present>", Note: RoleInference}}
			},
		},
		{
			Name:     "feature_column_parity",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "train and validation must have the same feature columns",
			Eval:     featureParity,
		},
		{
			Name:     "partition_key_overlap",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "no customer_id may appear in both train and validation",
			Limit:    SampleEvidenceLimit,
			Eval:     keyOverlap,
		},
		{
			Name:     "dataset_key_unique",
			Category: errors.CategoryInvariantViolation,
			Rule:     "customer_id must be non-null and unique in every dataset",
			Limit:    SampleEvidenceLimit,
			Eval: func(d Datasets) []Evidence {
				var out []Evidence
				for _, r := range d.roles() {
					out = append(out, keyUniqueNonNull(r.t, r.role)...)
				}
				return out
			},
		},
		{
			Name:     "label_non_null",
			Category: errors.CategoryInvariantViolation,
			Rule:     "churn must not be null in labeled datasets",
			Limit:    SampleEvidenceLimit,
			Eval: func(d Datasets) []Evidence {
				var out []Evidence
				for _, r := range d.labeled() {
					if !r.t.HasColumn(LabelColumn) {
						continue
					}
					for _, ev := range notNull(LabelColumn)(r.t) {
						ev.Note = r.role
						out = append(out, ev)
					}
				}
				return out
			},
		},
		{
			Name:     "numeric_finite",
			Category: errors.CategoryInvariantViolation,
			Rule:     "numeric columns must be finite and non-null",
			Limit:    SampleEvidenceLimit,
			Eval: func(d Datasets) []Evidence {
				var out []Evidence
				for _, r := range d.roles() {
					out = append(out, nonFinite(r.t, r.role)...)
				}
				return out
			},
		},
		{
			Name:     "label_domain",
			Category: errors.CategoryDomainViolation,
			Rule:     "churn must be in {0, 1}",
			Limit:    SampleEvidenceLimit,
			Eval: func(d Datasets) []Evidence {
				var out []Evidence
				for _, r := range d.labeled() {
					if !r.t.HasColumn(LabelColumn) {
						continue
					}
					for i := 0; i < r.t.Len(); i++ {
						v := r.t.Get(i, LabelColumn)
						if v.IsNull() {
							continue
						}
						if v.Kind() != table.KindInt || (v.Int() != 0 && v.Int() != 1) {
							ev := cell(r.t, i, LabelColumn)
							ev.Note = r.role
							out = append(out, ev)
						}
					}
				}
				return out
			},
		},
	}
}

// DatasetGate is the final gate before datasets are published.
func DatasetGate(log logger.Logger, opts ...GateOption) *Gate[Datasets] {
	return NewGate("datasets", log, DatasetChecks(), opts...)
}

func featureParity(d Datasets) []Evidence {
	features := func(t *table.Table) []string {
		return slices.DeleteFunc(t.ColumnNames(), func(c string) bool { return c == LabelColumn })
	}
	train, val := features(d.Train), features(d.Validation)

	var out []Evidence
	for _, c := range train {
		if !slices.Contains(val, c) {
			out = append(out, Evidence{Column: c, Value: "<only in train>", Note: RoleTrain})
		}
	}
	for _, c := range val {
		if !slices.Contains(train, c) {
			out = append(out, Evidence{Column: c, Value: "<only in validation>", Note: RoleValidation})
		}
	}
	return out
}

func keyOverlap(d Datasets) []Evidence {
	if !d.Train.HasColumn(KeyColumn) || !d.Validation.HasColumn(KeyColumn) {
		// reported by dataset_required_columns
		return nil
	}
	train := make(map[string]struct{}, d.Train.Len())
	for i := 0; i < d.Train.Len(); i++ {
		if v := d.Train.Get(i, KeyColumn); !v.IsNull() {
			train[v.Str()] = struct{}{}
		}
	}
	var out []Evidence
	for i := 0; i < d.Validation.Len(); i++ {
		v := d.Validation.Get(i, KeyColumn)
		if v.IsNull() {
			continue
		}
		if _, dup := train[v.Str()]; dup {
			out = append(out, Evidence{EntityID: v.Str(), Column: KeyColumn, Value: v.Str(), Note: "train+validation"})
		}
	}
	return out
}

// nonFinite reports null, NaN and infinite cells of every numeric column of t.
func nonFinite(t *table.Table, role string) []Evidence {
	var out []Evidence
	for _, col := range t.Columns() {
		if !col.Kind.Numeric() {
			continue
		}
		for i := 0; i < t.Len(); i++ {
			if !t.Get(i, col.Name).Finite() {
				ev := cell(t, i, col.Name)
				ev.Note = role
				out = append(out, ev)
			}
		}
	}
	return out
}
