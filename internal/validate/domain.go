package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Domain is the closed set of canonical values of a categorical column.
type Domain struct {
	Column string
	Values []string
}

// Contains reports whether v is a member of the domain.
func (d Domain) Contains(v string) bool {
	return slices.Contains(d.Values, v)
}

func (d Domain) String() string {
	return "{" + strings.Join(d.Values, ", ") + "}"
}

var (
	yesNo           = []string{schema.TokenYes, schema.TokenNo}
	yesNoNoInternet = []string{schema.TokenYes, schema.TokenNo, schema.TokenNoInternet}
)

// TelcoDomains are the closed vocabularies of the clean telco table, checked in order.
var TelcoDomains = []Domain{
	{Column: schema.ColGender, Values: []string{"Male", "Female"}},
	{Column: schema.ColPhoneService, Values: yesNo},
	{Column: schema.ColMultipleLines, Values: []string{schema.TokenYes, schema.TokenNo, schema.TokenNoPhone}},
	{Column: schema.ColInternetService, Values: []string{"DSL", "Fiber optic", "No"}},
	{Column: schema.ColOnlineSecurity, Values: yesNoNoInternet},
	{Column: schema.ColOnlineBackup, Values: yesNoNoInternet},
	{Column: schema.ColDeviceProtection, Values: yesNoNoInternet},
	{Column: schema.ColTechSupport, Values: yesNoNoInternet},
	{Column: schema.ColStreamingTV, Values: yesNoNoInternet},
	{Column: schema.ColStreamingMovies, Values: yesNoNoInternet},
	{Column: schema.ColContract, Values: []string{"Month-to-month", "One year", "Two year"}},
	{Column: schema.ColPaymentMethod, Values: []string{
		"Electronic check",
		"Mailed check",
		"Bank transfer (automatic)",
		"Credit card (automatic)",
	}},
}

// DomainChecks returns a not-null check followed by a membership check for
// every domain, in order.
func DomainChecks(domains []Domain) []Check[*table.Table] {
	checks := make([]Check[*table.Table], 0, 2*len(domains))
	for _, d := range domains {
		checks = append(checks,
			Check[*table.Table]{
				Name:     "domain_not_null:" + d.Column,
				Category: errors.CategoryDomainViolation,
				Rule:     fmt.Sprintf("%s must not be null", d.Column),
				Limit:    NullEvidenceLimit,
				Eval:     notNull(d.Column),
			},
			Check[*table.Table]{
				Name:     "domain_values:" + d.Column,
				Category: errors.CategoryDomainViolation,
				Rule:     fmt.Sprintf("%s values must be in %s", d.Column, d),
				Limit:    DomainEvidenceLimit,
				Eval:     inDomain(d),
			},
		)
	}
	return checks
}

func notNull(col string) func(*table.Table) []Evidence {
	return func(t *table.Table) []Evidence {
		if ev := guard(t, col); ev != nil {
			return ev
		}
		var out []Evidence
		for i := 0; i < t.Len(); i++ {
			if t.Get(i, col).IsNull() {
				out = append(out, cell(t, i, col))
			}
		}
		return out
	}
}

// inDomain skips nulls; the preceding not-null check reports those.
func inDomain(d Domain) func(*table.Table) []Evidence {
	return func(t *table.Table) []Evidence {
		if ev := guard(t, d.Column); ev != nil {
			return ev
		}
		var out []Evidence
		for i := 0; i < t.Len(); i++ {
			v := t.Get(i, d.Column)
			if v.IsNull() {
				continue
			}
			if v.Kind() != table.KindString || !d.Contains(v.Str()) {
				out = append(out, cell(t, i, d.Column))
			}
		}
		return out
	}
}
