package validate

import (
	"strconv"

	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Evidence bounds.
const (
	NullEvidenceLimit   = 20
	DomainEvidenceLimit = 50
	RuleEvidenceLimit   = 50
	SampleEvidenceLimit = 10
)

// KeyColumn is the entity key every gate reports evidence against.
const KeyColumn = schema.ColCustomerID

// entityID returns the key of row i, or a row label when the table has no key.
func entityID(t *table.Table, i int) string {
	if !t.HasColumn(KeyColumn) {
		return "row " + strconv.Itoa(i+1)
	}
	v := t.Get(i, KeyColumn)
	if v.IsNull() {
		return v.String()
	}
	return v.Str()
}

// cell builds evidence for column col of row i.
func cell(t *table.Table, i int, col string) Evidence {
	return Evidence{EntityID: entityID(t, i), Column: col, Value: t.Get(i, col).String()}
}

// withNote adds related cells to ev as "col=value" pairs.
func withNote(t *table.Table, i int, ev Evidence, cols ...string) Evidence {
	for _, c := range cols {
		if ev.Note != "" {
			ev.Note += " "
		}
		ev.Note += c + "=" + t.Get(i, c).String()
	}
	return ev
}

// missingColumns returns evidence for every name absent from t.
func missingColumns(t *table.Table, role string, names ...string) []Evidence {
	var out []Evidence
	for _, n := range names {
		if !t.HasColumn(n) {
			out = append(out, Evidence{Column: n, Value: "<missing column>", Note: role})
		}
	}
	return out
}

// guard returns missing-column evidence, or nil when every column exists.
// Checks call it first so a schema problem surfaces as a violation instead of a panic.
func guard(t *table.Table, names ...string) []Evidence {
	return missingColumns(t, "", names...)
}
