package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/testutil"
)

func TestStagingGatePassesOnCohort(t *testing.T) {
	t.Parallel()

	gate := StagingGate(testutil.DiscardLogger(), WithMode(ModeCollect))
	report, err := gate.Run(cleanTable(t, testutil.Cohort(100)...))
	require.NoError(t, err)
	assert.Len(t, report.Results, 2*len(TelcoDomains)+5+len(schema.InternetAddonColumns))
}

func TestStagingGateScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		customers func() []testutil.Customer
		wantCheck string
		wantCat   errors.ErrorCategory
		wantID    string
	}{
		{
			name: "no phone sentinel passes",
			customers: func() []testutil.Customer {
				return []testutil.Customer{testutil.NewCustomer("C1").WithoutPhone()}
			},
		},
		{
			name: "zero tenure with blank total passes",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C1")
				c.Tenure = "0"
				c.TotalCharges = ""
				return []testutil.Customer{c}
			},
		},
		{
			name: "add-on without internet",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C1").WithoutInternet()
				c.OnlineSecurity = "Yes"
				return []testutil.Customer{testutil.NewCustomer("C0"), c}
			},
			wantCheck: "internet_addon_consistency:" + schema.ColOnlineSecurity,
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C1",
		},
		{
			name: "duplicate key",
			customers: func() []testutil.Customer {
				return []testutil.Customer{testutil.NewCustomer("C1"), testutil.NewCustomer("C2"), testutil.NewCustomer("C1")}
			},
			wantCheck: "customer_id_unique",
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C1",
		},
		{
			name: "unknown gender",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C1")
				c.Gender = "Other"
				return []testutil.Customer{c}
			},
			wantCheck: "domain_values:" + schema.ColGender,
			wantCat:   errors.CategoryDomainViolation,
			wantID:    "C1",
		},
		{
			name: "missing contract",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C1")
				c.Contract = ""
				return []testutil.Customer{c}
			},
			wantCheck: "domain_not_null:" + schema.ColContract,
			wantCat:   errors.CategoryDomainViolation,
			wantID:    "C1",
		},
		{
			name: "negative tenure",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C7")
				c.Tenure = "-3"
				return []testutil.Customer{c}
			},
			wantCheck: "tenure_non_negative",
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C7",
		},
		{
			name: "blank total with tenure",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C3")
				c.TotalCharges = " "
				return []testutil.Customer{c}
			},
			wantCheck: "total_charges_null_policy",
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C3",
		},
		{
			name: "phone without lines answer",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C4")
				c.MultipleLines = "No phone service"
				return []testutil.Customer{c}
			},
			wantCheck: "phone_multiple_lines_consistency",
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C4",
		},
		{
			name: "no phone but lines answered",
			customers: func() []testutil.Customer {
				c := testutil.NewCustomer("C5").WithoutPhone()
				c.MultipleLines = "Yes"
				return []testutil.Customer{c}
			},
			wantCheck: "phone_multiple_lines_consistency",
			wantCat:   errors.CategoryInvariantViolation,
			wantID:    "C5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := StagingGate(testutil.DiscardLogger()).Run(cleanTable(t, tt.customers()...))
			if tt.wantCheck == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.wantCat))

			var gerr *GateError
			require.ErrorAs(t, err, &gerr)
			require.Len(t, gerr.Failures, 1)
			assert.Equal(t, tt.wantCheck, gerr.Failures[0].Check)
			require.NotEmpty(t, gerr.Failures[0].Evidence)
			assert.Equal(t, tt.wantID, gerr.Failures[0].Evidence[0].EntityID)
		})
	}
}

func TestStagingGateCollectReportsAllFailures(t *testing.T) {
	t.Parallel()

	bad := testutil.NewCustomer("C1").WithoutInternet()
	bad.StreamingTV = "Yes"
	bad.TechSupport = "No"
	dup := testutil.NewCustomer("C2")

	_, err := StagingGate(testutil.DiscardLogger(), WithMode(ModeCollect)).
		Run(cleanTable(t, bad, dup, dup))

	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, []string{
		"customer_id_unique",
		"internet_addon_consistency:" + schema.ColTechSupport,
		"internet_addon_consistency:" + schema.ColStreamingTV,
	}, gerr.Checks())
}

func TestDuplicateEvidenceListsEveryOccurrence(t *testing.T) {
	t.Parallel()

	clean := cleanTable(t, testutil.NewCustomer("C1"), testutil.NewCustomer("C1"), testutil.NewCustomer("C2"))
	ev := duplicateKeys(clean)
	require.Len(t, ev, 2)
	assert.Equal(t, "C1", ev[0].EntityID)
	assert.Equal(t, "C1", ev[1].EntityID)
}

func TestTotalChargesEvidenceNotesTenure(t *testing.T) {
	t.Parallel()

	c := testutil.NewCustomer("C9")
	c.TotalCharges = ""
	c.Tenure = "5"

	ev := totalChargesNullPolicy(cleanTable(t, c))
	require.Len(t, ev, 1)
	assert.Equal(t, Evidence{EntityID: "C9", Column: schema.ColTotalCharges, Value: "<null>", Note: "tenure=5"}, ev[0])
}
