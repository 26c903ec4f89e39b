package validate

import (
	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// InvariantChecks returns the cross-field business rules of the clean table.
func InvariantChecks() []Check[*table.Table] {
	checks := []Check[*table.Table]{
		{
			Name:     "customer_id_not_null",
			Category: errors.CategoryInvariantViolation,
			Rule:     "customer_id must not be null",
			Limit:    NullEvidenceLimit,
			Eval:     notNull(KeyColumn),
		},
		{
			Name:     "customer_id_unique",
			Category: errors.CategoryInvariantViolation,
			Rule:     "customer_id must be unique",
			Limit:    RuleEvidenceLimit,
			Eval:     duplicateKeys,
		},
		{
			Name:     "tenure_non_negative",
			Category: errors.CategoryInvariantViolation,
			Rule:     "tenure must be non-null and >= 0",
			Limit:    NullEvidenceLimit,
			Eval:     tenureNonNegative,
		},
		{
			Name:     "total_charges_null_policy",
			Category: errors.CategoryInvariantViolation,
			Rule:     "total_charges can be null only when tenure == 0",
			Limit:    RuleEvidenceLimit,
			Eval:     totalChargesNullPolicy,
		},
		{
			Name:     "phone_multiple_lines_consistency",
			Category: errors.CategoryInvariantViolation,
			Rule:     "phone_service=No requires multiple_lines=NoPhone; phone_service=Yes requires multiple_lines in {Yes, No}",
			Limit:    RuleEvidenceLimit,
			Eval:     phoneMultipleLines,
		},
	}

	for _, col := range schema.InternetAddonColumns {
		checks = append(checks, Check[*table.Table]{
			Name:     "internet_addon_consistency:" + col,
			Category: errors.CategoryInvariantViolation,
			Rule:     "internet_service=No requires " + col + "=NoInternet",
			Limit:    RuleEvidenceLimit,
			Eval:     internetAddon(col),
		})
	}

	return checks
}

// StagingGate is the gate between canonicalization and feature derivation:
// domain closure first, then cross-field invariants.
func StagingGate(log logger.Logger, opts ...GateOption) *Gate[*table.Table] {
	checks := append(DomainChecks(TelcoDomains), InvariantChecks()...)
	return NewGate("staging-clean", log, checks, opts...)
}

// duplicateKeys reports every row whose non-null key occurs more than once.
func duplicateKeys(t *table.Table) []Evidence {
	return duplicatesIn(t, "")
}

func duplicatesIn(t *table.Table, role string) []Evidence {
	if ev := missingColumns(t, role, KeyColumn); ev != nil {
		return ev
	}
	counts := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		if v := t.Get(i, KeyColumn); !v.IsNull() {
			counts[v.Str()]++
		}
	}
	var out []Evidence
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, KeyColumn)
		if !v.IsNull() && counts[v.Str()] > 1 {
			ev := cell(t, i, KeyColumn)
			ev.Note = role
			out = append(out, ev)
		}
	}
	return out
}

func tenureNonNegative(t *table.Table) []Evidence {
	if ev := guard(t, schema.ColTenure); ev != nil {
		return ev
	}
	var out []Evidence
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, schema.ColTenure)
		if n, ok := v.Number(); !ok || n < 0 {
			out = append(out, cell(t, i, schema.ColTenure))
		}
	}
	return out
}

// totalChargesNullPolicy flags null totals for customers with tenure > 0.
// Null tenure is the previous check's concern.
func totalChargesNullPolicy(t *table.Table) []Evidence {
	if ev := guard(t, schema.ColTenure, schema.ColTotalCharges); ev != nil {
		return ev
	}
	var out []Evidence
	for i := 0; i < t.Len(); i++ {
		if !t.Get(i, schema.ColTotalCharges).IsNull() {
			continue
		}
		if n, ok := t.Get(i, schema.ColTenure).Number(); ok && n > 0 {
			out = append(out, withNote(t, i, cell(t, i, schema.ColTotalCharges), schema.ColTenure))
		}
	}
	return out
}

func phoneMultipleLines(t *table.Table) []Evidence {
	if ev := guard(t, schema.ColPhoneService, schema.ColMultipleLines); ev != nil {
		return ev
	}
	var out []Evidence
	for i := 0; i < t.Len(); i++ {
		phone := t.Get(i, schema.ColPhoneService)
		lines := t.Get(i, schema.ColMultipleLines)
		if phone.IsNull() {
			continue
		}
		var bad bool
		switch phone.Str() {
		case schema.TokenNo:
			bad = lines.IsNull() || lines.Str() != schema.TokenNoPhone
		case schema.TokenYes:
			bad = lines.IsNull() || (lines.Str() != schema.TokenYes && lines.Str() != schema.TokenNo)
		}
		if bad {
			out = append(out, withNote(t, i, cell(t, i, schema.ColMultipleLines), schema.ColPhoneService))
		}
	}
	return out
}

func internetAddon(col string) func(*table.Table) []Evidence {
	return func(t *table.Table) []Evidence {
		if ev := guard(t, schema.ColInternetService, col); ev != nil {
			return ev
		}
		var out []Evidence
		for i := 0; i < t.Len(); i++ {
			internet := t.Get(i, schema.ColInternetService)
			if internet.IsNull() || internet.Str() != "No" {
				continue
			}
			addon := t.Get(i, col)
			if addon.IsNull() || addon.Str() != schema.TokenNoInternet {
				out = append(out, withNote(t, i, cell(t, i, col), schema.ColInternetService))
			}
		}
		return out
	}
}
