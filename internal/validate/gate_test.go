package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/testutil"
)

func countingChecks(fails ...int) []Check[[]int] {
	checks := make([]Check[[]int], 0, len(fails))
	for i, n := range fails {
		category := errors.CategoryInvariantViolation
		if i == 0 {
			category = errors.CategoryDomainViolation
		}
		checks = append(checks, Check[[]int]{
			Name:     "check_" + string(rune('a'+i)),
			Category: category,
			Rule:     "no failures",
			Limit:    3,
			Eval: func(_ []int) []Evidence {
				out := make([]Evidence, n)
				for k := range out {
					out[k] = Evidence{EntityID: "E", Column: "c", Value: "v"}
				}
				return out
			},
		})
	}
	return checks
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("COLLECT")
	require.NoError(t, err)
	assert.Equal(t, ModeCollect, m)

	m, err = ParseMode("failfast")
	require.NoError(t, err)
	assert.Equal(t, ModeFailFast, m)

	_, err = ParseMode("lenient")
	assert.Error(t, err)
}

func TestGateFailFastStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	gate := NewGate("test", testutil.DiscardLogger(), countingChecks(0, 5, 2), WithObserver(obs))

	report, err := gate.Run(nil)
	require.Error(t, err)

	assert.Equal(t, []string{"check_a", "check_b"}, obs.checks)
	assert.Len(t, report.Results, 2)

	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, []string{"check_b"}, gerr.Checks())
	assert.Equal(t, 5, gerr.Failures[0].Violations)
	assert.Len(t, gerr.Failures[0].Evidence, 3, "evidence is bounded by the check limit")
	assert.True(t, errors.IsCategory(err, errors.CategoryInvariantViolation))
}

func TestGateCollectRunsEveryCheck(t *testing.T) {
	t.Parallel()

	gate := NewGate("test", testutil.DiscardLogger(), countingChecks(1, 0, 2), WithMode(ModeCollect))

	report, err := gate.Run(nil)
	require.Error(t, err)
	assert.Len(t, report.Results, 3)

	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, []string{"check_a", "check_c"}, gerr.Checks())
	assert.True(t, errors.IsCategory(err, errors.CategoryDomainViolation), "category of the first failure")
	assert.Contains(t, err.Error(), "check_c")
}

func TestGatePasses(t *testing.T) {
	t.Parallel()

	gate := NewGate("test", testutil.DiscardLogger(), countingChecks(0, 0))
	report, err := gate.Run(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.Equal(t, []string{"check_a", "check_b"}, gate.Checks())
	assert.Equal(t, "test", gate.Name())
}

func TestGateLogsEvidenceTable(t *testing.T) {
	t.Parallel()

	log, buf := testutil.BufferLogger()
	gate := NewGate("test", log, countingChecks(4), WithMaxLogged(2))

	_, err := gate.Run(nil)
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, "check failed")
	assert.Contains(t, out, "entity_id")
	assert.Contains(t, out, "rows=4")
	assert.Contains(t, out, "shown=2")
}
