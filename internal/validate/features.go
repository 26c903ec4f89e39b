package validate

import (
	"fmt"
	"math"
	"strconv"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// FeatureSubject is the input of the feature gate.
type FeatureSubject struct {
	Features     *table.Table
	ExpectedRows int // rows of the clean table the features were derived from
}

// FeatureChecks returns the checks of the merged feature table.
func FeatureChecks(required []string) []Check[FeatureSubject] {
	return []Check[FeatureSubject]{
		{
			Name:     "feature_required_columns",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "feature table must contain every required column",
			Eval: func(s FeatureSubject) []Evidence {
				return missingColumns(s.Features, "features", required...)
			},
		},
		{
			Name:     "feature_row_count",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "feature table must have one row per clean row",
			Eval: func(s FeatureSubject) []Evidence {
				if s.Features.Len() == s.ExpectedRows {
					return nil
				}
				return []Evidence{{
					Column: KeyColumn,
					Value:  strconv.Itoa(s.Features.Len()),
					Note:   fmt.Sprintf("expected=%d", s.ExpectedRows),
				}}
			},
		},
		{
			Name:     "feature_key_unique",
			Category: errors.CategoryIntegrityViolation,
			Rule:     "customer_id must be non-null and unique",
			Limit:    SampleEvidenceLimit,
			Eval: func(s FeatureSubject) []Evidence {
				return keyUniqueNonNull(s.Features, "features")
			},
		},
		{
			Name:     "feature_no_nulls",
			Category: errors.CategoryInvariantViolation,
			Rule:     "required feature columns must not contain nulls",
			Limit:    SampleEvidenceLimit,
			Eval: func(s FeatureSubject) []Evidence {
				var out []Evidence
				for _, col := range required {
					if !s.Features.HasColumn(col) {
						continue
					}
					out = append(out, notNull(col)(s.Features)...)
				}
				return out
			},
		},
		{
			Name:     "feature_tenure_non_negative",
			Category: errors.CategoryInvariantViolation,
			Rule:     "tenure must be >= 0",
			Limit:    SampleEvidenceLimit,
			Eval:     featureColumn(schema.ColTenure, func(n float64) bool { return n >= 0 }),
		},
		{
			Name:     "feature_monthly_charges_non_negative",
			Category: errors.CategoryInvariantViolation,
			Rule:     "monthly_charges must be >= 0",
			Limit:    SampleEvidenceLimit,
			Eval:     featureColumn(schema.ColMonthlyCharges, func(n float64) bool { return n >= 0 }),
		},
		{
			Name:     "feature_avg_monthly_charges_finite",
			Category: errors.CategoryInvariantViolation,
			Rule:     "avg_monthly_charges must be finite",
			Limit:    SampleEvidenceLimit,
			Eval: featureColumn(schema.ColAvgMonthlyCharges, func(n float64) bool {
				return !math.IsNaN(n) && !math.IsInf(n, 0)
			}),
		},
		{
			Name:     "feature_internet_addons_range",
			Category: errors.CategoryInvariantViolation,
			Rule:     "num_internet_addons must be within [0, 6]",
			Limit:    SampleEvidenceLimit,
			Eval: featureColumn(schema.ColNumInternetAddons, func(n float64) bool {
				return n >= 0 && n <= float64(len(schema.InternetAddonColumns))
			}),
		},
	}
}

// FeatureGate is the gate between feature derivation and dataset assembly.
func FeatureGate(log logger.Logger, opts ...GateOption) *Gate[FeatureSubject] {
	return NewGate("features", log, FeatureChecks(schema.FeatureColumns), opts...)
}

// featureColumn flags non-null values of a numeric column that fail ok.
// Nulls belong to feature_no_nulls.
func featureColumn(col string, ok func(float64) bool) func(FeatureSubject) []Evidence {
	return func(s FeatureSubject) []Evidence {
		t := s.Features
		if !t.HasColumn(col) {
			// reported by feature_required_columns
			return nil
		}
		var out []Evidence
		for i := 0; i < t.Len(); i++ {
			v := t.Get(i, col)
			if v.IsNull() {
				continue
			}
			if n, numeric := v.Number(); !numeric || !ok(n) {
				out = append(out, cell(t, i, col))
			}
		}
		return out
	}
}

// keyUniqueNonNull reports null keys and duplicated keys of t.
func keyUniqueNonNull(t *table.Table, role string) []Evidence {
	if !t.HasColumn(KeyColumn) {
		return missingColumns(t, role, KeyColumn)
	}
	var out []Evidence
	for _, ev := range notNull(KeyColumn)(t) {
		ev.Note = role
		out = append(out, ev)
	}
	return append(out, duplicatesIn(t, role)...)
}
