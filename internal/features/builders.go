package features

import (
	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Builder derives one feature group keyed by customer_id from the clean table.
type Builder struct {
	Name  string
	Build func(clean *table.Table) (*table.Table, error)
}

// Builders returns the feature groups in merge order.
func Builders() []Builder {
	return []Builder{
		{Name: "profile", Build: Profile},
		{Name: "contract_service", Build: ContractService},
		{Name: "tenure_billing", Build: TenureBilling},
	}
}

// Profile casts the demographic flags to 0/1.
func Profile(clean *table.Table) (*table.Table, error) {
	if err := requireColumns(clean, "profile", schema.ColSeniorCitizen, schema.ColPartner, schema.ColDependents); err != nil {
		return nil, err
	}
	out := table.MustNew(
		keyCol(),
		intCol(schema.ColIsSenior),
		intCol(schema.ColHasPartner),
		intCol(schema.ColHasDependents),
	)
	for i := 0; i < clean.Len(); i++ {
		if err := out.AppendRow(
			clean.Get(i, schema.ColCustomerID),
			flag(clean.Get(i, schema.ColSeniorCitizen)),
			flag(clean.Get(i, schema.ColPartner)),
			flag(clean.Get(i, schema.ColDependents)),
		); err != nil {
			return nil, buildError(err, "profile")
		}
	}
	return out, nil
}

// ContractService derives the contract flag, keeps the contract category and
// counts active internet add-ons.
func ContractService(clean *table.Table) (*table.Table, error) {
	cols := append([]string{
		schema.ColContract, schema.ColPhoneService, schema.ColMultipleLines, schema.ColInternetService,
	}, schema.InternetAddonColumns...)
	if err := requireColumns(clean, "contract_service", cols...); err != nil {
		return nil, err
	}

	out := table.MustNew(
		keyCol(),
		intCol(schema.ColIsMonthToMonth),
		table.Column{Name: schema.ColContractType, Kind: table.KindString},
		intCol(schema.ColHasPhoneService),
		intCol(schema.ColHasMultipleLines),
		intCol(schema.ColHasInternetService),
		intCol(schema.ColNumInternetAddons),
	)
	for i := 0; i < clean.Len(); i++ {
		contract := clean.Get(i, schema.ColContract)
		addons := int64(0)
		for _, col := range schema.InternetAddonColumns {
			if isToken(clean.Get(i, col), schema.TokenYes) {
				addons++
			}
		}
		if err := out.AppendRow(
			clean.Get(i, schema.ColCustomerID),
			equalsFlag(contract, "Month-to-month"),
			contract,
			equalsFlag(clean.Get(i, schema.ColPhoneService), schema.TokenYes),
			equalsFlag(clean.Get(i, schema.ColMultipleLines), schema.TokenYes),
			notEqualsFlag(clean.Get(i, schema.ColInternetService), "No"),
			table.Int(addons),
		); err != nil {
			return nil, buildError(err, "contract_service")
		}
	}
	return out, nil
}

// TenureBilling buckets tenure and derives the average monthly spend. A
// missing total is billed as 0.
func TenureBilling(clean *table.Table) (*table.Table, error) {
	if err := requireColumns(clean, "tenure_billing", schema.ColTenure, schema.ColMonthlyCharges, schema.ColTotalCharges); err != nil {
		return nil, err
	}

	out := table.MustNew(
		keyCol(),
		intCol(schema.ColTenure),
		table.Column{Name: schema.ColTenureBucket, Kind: table.KindString},
		floatCol(schema.ColMonthlyCharges),
		floatCol(schema.ColTotalCharges),
		floatCol(schema.ColAvgMonthlyCharges),
	)
	for i := 0; i < clean.Len(); i++ {
		tenure := clean.Get(i, schema.ColTenure)
		total := clean.Get(i, schema.ColTotalCharges)
		if total.IsNull() {
			total = table.Float(0)
		}

		bucket := table.Null(table.KindString)
		avg := table.Null(table.KindFloat)
		if !tenure.IsNull() {
			if b, ok := TenureBucket(tenure.Int()); ok {
				bucket = table.Str(b)
			}
			avg = table.Float(AvgMonthlyCharges(total.Float(), tenure.Int()))
		}

		if err := out.AppendRow(
			clean.Get(i, schema.ColCustomerID),
			tenure,
			bucket,
			clean.Get(i, schema.ColMonthlyCharges),
			total,
			avg,
		); err != nil {
			return nil, buildError(err, "tenure_billing")
		}
	}
	return out, nil
}

// TenureBucket maps tenure months to [0,6) new, [6,12) early, [12,24) stable
// and [24,∞) loyal. Negative tenure has no bucket.
func TenureBucket(months int64) (string, bool) {
	switch {
	case months < 0:
		return "", false
	case months < 6:
		return schema.BucketNew, true
	case months < 12:
		return schema.BucketEarly, true
	case months < 24:
		return schema.BucketStable, true
	default:
		return schema.BucketLoyal, true
	}
}

// AvgMonthlyCharges is total/tenure, or exactly 0 when tenure is not positive.
func AvgMonthlyCharges(total float64, tenure int64) float64 {
	if tenure <= 0 {
		return 0
	}
	return total / float64(tenure)
}

func keyCol() table.Column {
	return table.Column{Name: schema.ColCustomerID, Kind: table.KindString}
}

func intCol(name string) table.Column {
	return table.Column{Name: name, Kind: table.KindInt}
}

func floatCol(name string) table.Column {
	return table.Column{Name: name, Kind: table.KindFloat}
}

// flag converts a boolean to 0/1, keeping nulls.
func flag(v table.Value) table.Value {
	if v.IsNull() {
		return table.Null(table.KindInt)
	}
	if v.Bool() {
		return table.Int(1)
	}
	return table.Int(0)
}

func isToken(v table.Value, token string) bool {
	return !v.IsNull() && v.Str() == token
}

func equalsFlag(v table.Value, token string) table.Value {
	if v.IsNull() {
		return table.Null(table.KindInt)
	}
	return flag(table.Bool(v.Str() == token))
}

func notEqualsFlag(v table.Value, token string) table.Value {
	if v.IsNull() {
		return table.Null(table.KindInt)
	}
	return flag(table.Bool(v.Str() != token))
}

func requireColumns(clean *table.Table, group string, cols ...string) error {
	cols = append([]string{schema.ColCustomerID}, cols...)
	for _, c := range cols {
		if !clean.HasColumn(c) {
			return errors.Newf("feature group %s: clean table has no column %q", group, c).
				Component("features").
				Category(errors.CategoryIntegrityViolation).
				Context("group", group).
				Build()
		}
	}
	return nil
}

func buildError(err error, group string) error {
	return errors.New(err).
		Component("features").
		Category(errors.CategoryIntegrityViolation).
		Context("group", group).
		Build()
}
