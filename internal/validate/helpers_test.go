package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/ingest"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/staging"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/testutil"
)

// cleanTable runs customers through coercion and canonicalization.
func cleanTable(t *testing.T, customers ...testutil.Customer) *table.Table {
	t.Helper()
	batch := &ingest.RawBatch{Source: "test.csv", Header: testutil.TelcoHeader}
	for _, c := range customers {
		batch.Records = append(batch.Records, c.Record())
	}
	typed, _, err := ingest.NewEngine(schema.Telco, testutil.DiscardLogger()).Coerce(batch)
	require.NoError(t, err)
	clean, _ := staging.Canonicalize(typed)
	return clean
}

// recordingObserver remembers every check outcome.
type recordingObserver struct {
	checks []string
	passed []bool
}

func (r *recordingObserver) CheckCompleted(_, check string, passed bool, _ int) {
	r.checks = append(r.checks, check)
	r.passed = append(r.passed, passed)
}
