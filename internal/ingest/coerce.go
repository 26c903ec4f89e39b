package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// booleanTokens is the closed vocabulary accepted for boolean fields.
var booleanTokens = map[string]bool{
	"Yes": true, "No": false,
	"yes": true, "no": false,
	"1": true, "0": false,
	"true": true, "false": false,
	"True": true, "False": false,
	"TRUE": true, "FALSE": false,
}

// CoercionError describes a strict field that holds tokens outside its type.
type CoercionError struct {
	Field   string
	Type    schema.SemanticType
	Count   int
	Samples []Anomaly
	Top     []TokenCount
}

func (e *CoercionError) Error() string {
	tokens := make([]string, 0, len(e.Top))
	for _, t := range e.Top {
		tokens = append(tokens, fmt.Sprintf("%q×%d", t.Token, t.Count))
	}
	return fmt.Sprintf("%s: %d values cannot be coerced to %s (most frequent: %s)",
		e.Field, e.Count, e.Type, strings.Join(tokens, ", "))
}

// Engine applies a schema registry to raw batches.
type Engine struct {
	registry *schema.Registry
	key      string
	log      logger.Logger
}

// NewEngine returns an engine for reg. Anomalies are reported against the
// values of the customer_id column.
func NewEngine(reg *schema.Registry, log logger.Logger) *Engine {
	return &Engine{registry: reg, key: schema.ColCustomerID, log: log}
}

// fieldResult is the outcome of coercing one column.
type fieldResult struct {
	values   []table.Value
	failures int
	samples  []Anomaly
	tokens   *tokenCounter
}

// Coerce maps every registry field from batch into a typed column named after
// its canonical name, in registry order. Strict fields with unparseable tokens
// fail the run; tolerant fields become null and are reported in Diagnostics.
func (e *Engine) Coerce(batch *RawBatch) (*table.Table, *Diagnostics, error) {
	fields := e.registry.Fields()
	headerIdx := batch.HeaderIndex()

	var missing []string
	for _, f := range fields {
		if _, ok := headerIdx[f.SourceName]; !ok {
			missing = append(missing, f.SourceName)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.Newf("raw extract is missing fields: %s", strings.Join(missing, ", ")).
			Component("ingest").
			Category(errors.CategorySchemaCoercion).
			FileContext(batch.Source).
			Context("missing_fields", missing).
			Build()
	}

	for i, rec := range batch.Records {
		if len(rec) != len(batch.Header) {
			return nil, nil, errors.Newf("record %d has %d cells, header has %d", i+1, len(rec), len(batch.Header)).
				Component("ingest").
				Category(errors.CategoryFileParsing).
				FileContext(batch.Source).
				Build()
		}
	}

	entityIDs := e.entityIDs(batch, headerIdx)
	cols := make([]table.Column, len(fields))
	columns := make([][]table.Value, len(fields))
	diags := &Diagnostics{}

	for fi, f := range fields {
		e.log.Debug("handling field",
			logger.String("field", f.CanonicalName),
			logger.String("type", string(f.Type)),
			logger.String("rule", string(f.Rule)))

		res := coerceColumn(f, batch.Records, headerIdx[f.SourceName], entityIDs)
		cols[fi] = table.Column{Name: f.CanonicalName, Kind: table.KindOf(f.Type)}
		columns[fi] = res.values

		if res.failures == 0 {
			continue
		}

		switch f.Rule {
		case schema.RuleStrict:
			cerr := &CoercionError{
				Field:   f.CanonicalName,
				Type:    f.Type,
				Count:   res.failures,
				Samples: res.samples,
				Top:     res.tokens.top(TopTokenLimit),
			}
			logger.Table(e.log.With(logger.String("field", f.CanonicalName)), logger.LogLevelError,
				"unmapped values", []string{"raw_" + f.CanonicalName, "count"},
				frequencyRows(cerr.Top), len(res.tokens.order), TopTokenLimit)
			return nil, nil, errors.New(cerr).
				Component("ingest").
				Category(errors.CategorySchemaCoercion).
				FileContext(batch.Source).
				Context("field", f.CanonicalName).
				Context("failures", res.failures).
				Build()
		case schema.RuleTolerant:
			diags.Fields = append(diags.Fields, FieldDiagnostic{
				Field:       f.CanonicalName,
				Count:       res.failures,
				Samples:     res.samples,
				Frequencies: res.tokens.top(0),
			})
		}
	}

	out, err := table.New(cols...)
	if err != nil {
		return nil, nil, errors.New(err).
			Component("ingest").
			Category(errors.CategorySchemaCoercion).
			Build()
	}
	row := make([]table.Value, len(fields))
	for ri := range batch.Records {
		for ci := range columns {
			row[ci] = columns[ci][ri]
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, nil, errors.New(err).
				Component("ingest").
				Category(errors.CategorySchemaCoercion).
				Context("record", ri+1).
				Build()
		}
	}

	diags.Log(e.log)
	e.log.Info("coerced raw batch",
		logger.String("source", batch.Source),
		logger.Int("rows", out.Len()),
		logger.Int("fields", len(cols)),
		logger.Int("anomalies", diags.Total()))

	return out, diags, nil
}

// entityIDs returns the raw key token per record, or a row label when the key
// field is not registered.
func (e *Engine) entityIDs(batch *RawBatch, headerIdx map[string]int) []string {
	ids := make([]string, len(batch.Records))
	keySpec, hasKey := e.registry.Canonical(e.key)
	for i, rec := range batch.Records {
		if hasKey {
			ids[i] = rec[headerIdx[keySpec.SourceName]]
			continue
		}
		ids[i] = "row " + strconv.Itoa(i+1)
	}
	return ids
}

func coerceColumn(f schema.FieldSpec, records [][]string, col int, entityIDs []string) fieldResult {
	res := fieldResult{
		values: make([]table.Value, len(records)),
		tokens: newTokenCounter(),
	}
	for i, rec := range records {
		raw := rec[col]
		v, cleaned, ok := coerceToken(f.Type, raw)
		res.values[i] = v
		if ok {
			continue
		}
		res.failures++
		res.tokens.add(raw)
		if len(res.samples) < SampleLimit {
			res.samples = append(res.samples, Anomaly{EntityID: entityIDs[i], Raw: raw, Cleaned: cleaned})
		}
	}
	return res
}

// coerceToken converts one raw token. ok is false when the token could not be
// represented; v is then null.
func coerceToken(typ schema.SemanticType, raw string) (v table.Value, cleaned string, ok bool) {
	kind := table.KindOf(typ)
	switch typ {
	case schema.TypeString:
		if raw == "" {
			return table.Null(kind), raw, true
		}
		return table.Str(raw), raw, true

	case schema.TypeInteger:
		cleaned = strings.TrimSpace(raw)
		if raw == "" {
			return table.Null(kind), cleaned, true
		}
		if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return table.Int(i), cleaned, true
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f == math.Trunc(f) &&
			f >= math.MinInt64 && f < math.MaxInt64 {
			return table.Int(int64(f)), cleaned, true
		}
		return table.Null(kind), cleaned, false

	case schema.TypeFloat:
		cleaned = strings.TrimSpace(raw)
		if cleaned == "" {
			return table.Null(kind), cleaned, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) {
			return table.Null(kind), cleaned, false
		}
		return table.Float(f), cleaned, true

	case schema.TypeBoolean:
		if b, found := booleanTokens[raw]; found {
			return table.Bool(b), raw, true
		}
		return table.Null(kind), raw, false
	}

	return table.Null(kind), raw, false
}
