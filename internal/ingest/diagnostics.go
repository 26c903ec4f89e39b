package ingest

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/churnlab/churnprep/internal/logger"
)

const (
	// SampleLimit bounds the anomaly rows kept per field.
	SampleLimit = 10
	// TopTokenLimit bounds the frequency table attached to a fatal coercion error.
	TopTokenLimit = 5
)

// Anomaly is one row whose token could not be coerced.
type Anomaly struct {
	EntityID string
	Raw      string
	Cleaned  string
}

// TokenCount is one row of a frequency table.
type TokenCount struct {
	Token string
	Count int
}

// FieldDiagnostic summarizes the tolerated failures of one field.
type FieldDiagnostic struct {
	Field       string
	Count       int
	Samples     []Anomaly    // at most SampleLimit
	Frequencies []TokenCount // every offending raw token, most frequent first
}

// Diagnostics is the non-fatal outcome of coercion. A run with anomalies still succeeds.
type Diagnostics struct {
	Fields []FieldDiagnostic
}

// Total returns the number of coerced-to-null cells across all fields.
func (d *Diagnostics) Total() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, f := range d.Fields {
		n += f.Count
	}
	return n
}

// Field returns the diagnostic for a canonical field name.
func (d *Diagnostics) Field(name string) (FieldDiagnostic, bool) {
	if d == nil {
		return FieldDiagnostic{}, false
	}
	for _, f := range d.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldDiagnostic{}, false
}

// Log writes every field diagnostic at warn level as two tables.
func (d *Diagnostics) Log(log logger.Logger) {
	if d == nil {
		return
	}
	for _, f := range d.Fields {
		rows := make([][]string, 0, len(f.Samples))
		for _, s := range f.Samples {
			rows = append(rows, []string{s.EntityID, fmt.Sprintf("%q", s.Raw), fmt.Sprintf("%q", s.Cleaned)})
		}
		logger.Table(log.With(logger.String("field", f.Field)), logger.LogLevelWarn,
			"float parse produced nulls",
			[]string{"entity_id", "raw_" + f.Field, "clean_" + f.Field},
			rows, f.Count, SampleLimit)

		logger.Table(log.With(logger.String("field", f.Field)), logger.LogLevelWarn,
			"raw values that failed parsing",
			[]string{"raw_" + f.Field, "count"},
			frequencyRows(f.Frequencies), len(f.Frequencies), 0)
	}
}

// tokenCounter counts raw tokens while preserving first-seen order for ties.
type tokenCounter struct {
	counts map[string]int
	order  []string
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{counts: make(map[string]int)}
}

func (c *tokenCounter) add(token string) {
	if _, seen := c.counts[token]; !seen {
		c.order = append(c.order, token)
	}
	c.counts[token]++
}

// top returns the n most frequent tokens; n <= 0 returns all of them.
func (c *tokenCounter) top(n int) []TokenCount {
	out := make([]TokenCount, 0, len(c.order))
	for _, tok := range c.order {
		out = append(out, TokenCount{Token: tok, Count: c.counts[tok]})
	}
	slices.SortStableFunc(out, func(a, b TokenCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func frequencyRows(freqs []TokenCount) [][]string {
	rows := make([][]string, 0, len(freqs))
	for _, f := range freqs {
		rows = append(rows, []string{fmt.Sprintf("%q", f.Token), fmt.Sprint(f.Count)})
	}
	return rows
}
