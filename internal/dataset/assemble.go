// Package dataset attaches labels to the feature table and partitions it into
// train, validation and inference datasets.
package dataset

import (
	"fmt"
	"math"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// LabelColumn is the supervised target attached to the features.
const LabelColumn = schema.ColChurn

// Config controls assembly.
type Config struct {
	Seed               uint64
	ValidationFraction float64
	BalanceTolerance   float64 // churn rate drift between partitions that triggers a warning
}

// DefaultConfig returns seed 42 and a 20% validation partition.
func DefaultConfig() Config {
	return Config{Seed: 42, ValidationFraction: 0.2, BalanceTolerance: 0.02}
}

// Sets are the assembled datasets. Inference never has a label column.
type Sets struct {
	Train      *table.Table
	Validation *table.Table
	Inference  *table.Table
}

// Balance is the class balance of one labeled dataset.
type Balance struct {
	Rows      int
	Positives int
}

// Rate returns the share of positive labels, 0 for an empty dataset.
func (b Balance) Rate() float64 {
	if b.Rows == 0 {
		return 0
	}
	return float64(b.Positives) / float64(b.Rows)
}

// Assembler builds Sets from a feature table and the clean table's labels.
type Assembler struct {
	cfg Config
	log logger.Logger
}

// NewAssembler returns an assembler for cfg.
func NewAssembler(cfg Config, log logger.Logger) *Assembler {
	return &Assembler{cfg: cfg, log: log}
}

// Assemble joins labels from clean onto features, splits the labeled rows and
// derives the inference dataset.
func (a *Assembler) Assemble(features, clean *table.Table) (Sets, error) {
	if a.cfg.ValidationFraction <= 0 || a.cfg.ValidationFraction >= 1 {
		return Sets{}, errors.Newf("validation fraction %v must be strictly between 0 and 1", a.cfg.ValidationFraction).
			Component("dataset").
			Category(errors.CategoryConfiguration).
			Build()
	}

	labels, err := Labels(clean)
	if err != nil {
		return Sets{}, err
	}

	labeled, err := JoinLabels(features, labels)
	if err != nil {
		return Sets{}, err
	}

	trainIdx, valIdx, err := StratifiedSplit(labeled, LabelColumn, a.cfg.ValidationFraction, a.cfg.Seed)
	if err != nil {
		return Sets{}, err
	}

	sets := Sets{
		Train:      labeled.Take(trainIdx),
		Validation: labeled.Take(valIdx),
		Inference:  features.Drop(LabelColumn),
	}

	a.logBalance(sets)
	return sets, nil
}

func (a *Assembler) logBalance(sets Sets) {
	train := ClassBalance(sets.Train)
	val := ClassBalance(sets.Validation)
	for _, p := range []struct {
		name string
		b    Balance
	}{{"train", train}, {"validation", val}} {
		a.log.Info("class balance",
			logger.String("dataset", p.name),
			logger.Int("rows", p.b.Rows),
			logger.Float64("churn_rate", p.b.Rate()))
	}
	a.log.Info("inference dataset", logger.Int("rows", sets.Inference.Len()))

	if drift := math.Abs(train.Rate() - val.Rate()); drift > a.cfg.BalanceTolerance {
		a.log.Warn("partition churn rates drift apart",
			logger.Float64("drift", drift),
			logger.Float64("tolerance", a.cfg.BalanceTolerance))
	}
}

// Labels extracts (customer_id, churn) from the clean table with churn as 0/1.
func Labels(clean *table.Table) (*table.Table, error) {
	if !clean.HasColumn(schema.ColCustomerID) || !clean.HasColumn(schema.ColChurn) {
		return nil, errors.Newf("clean table needs %s and %s to build labels", schema.ColCustomerID, schema.ColChurn).
			Component("dataset").
			Category(errors.CategoryIntegrityViolation).
			Build()
	}

	out := table.MustNew(
		table.Column{Name: schema.ColCustomerID, Kind: table.KindString},
		table.Column{Name: LabelColumn, Kind: table.KindInt},
	)
	for i := 0; i < clean.Len(); i++ {
		label := table.Null(table.KindInt)
		if v := clean.Get(i, schema.ColChurn); !v.IsNull() {
			label = table.Int(0)
			if v.Bool() {
				label = table.Int(1)
			}
		}
		if err := out.AppendRow(clean.Get(i, schema.ColCustomerID), label); err != nil {
			return nil, errors.New(err).
				Component("dataset").
				Category(errors.CategoryIntegrityViolation).
				Build()
		}
	}
	return out, nil
}

// JoinLabels inner-joins labels onto features by customer_id, one-to-one, in
// feature order. A duplicated label key, a label column already present in
// features, or any feature row without a label is an integrity violation.
func JoinLabels(features, labels *table.Table) (*table.Table, error) {
	if features.HasColumn(LabelColumn) {
		return nil, integrity("feature table already has a %s column", LabelColumn)
	}

	index := make(map[string]int, labels.Len())
	for i := 0; i < labels.Len(); i++ {
		key := labels.Get(i, schema.ColCustomerID)
		if key.IsNull() {
			continue
		}
		if _, dup := index[key.Str()]; dup {
			return nil, integrity("label source has duplicate key %q", key.Str())
		}
		index[key.Str()] = i
	}

	labelCol, _ := labels.Column(LabelColumn)
	out, err := table.New(append(features.Columns(), labelCol)...)
	if err != nil {
		return nil, integrity("%v", err)
	}

	var dropped []string
	for i := 0; i < features.Len(); i++ {
		key := features.Get(i, schema.ColCustomerID)
		j, ok := -1, false
		if !key.IsNull() {
			j, ok = index[key.Str()]
		}
		if !ok {
			dropped = append(dropped, key.String())
			continue
		}
		if err := out.AppendRow(append(features.Row(i), labels.Get(j, LabelColumn))...); err != nil {
			return nil, integrity("%v", err)
		}
	}

	if len(dropped) > 0 {
		sample := dropped[:min(len(dropped), 10)]
		return nil, errors.Newf("feature-label join dropped %d rows; check customer_id consistency between features and staging", len(dropped)).
			Component("dataset").
			Category(errors.CategoryIntegrityViolation).
			Context("dropped", len(dropped)).
			Context("sample", sample).
			Build()
	}
	return out, nil
}

// ClassBalance counts rows and positive labels of a labeled dataset.
func ClassBalance(t *table.Table) Balance {
	b := Balance{Rows: t.Len()}
	if !t.HasColumn(LabelColumn) {
		return b
	}
	for i := 0; i < t.Len(); i++ {
		if v := t.Get(i, LabelColumn); !v.IsNull() && v.Int() == 1 {
			b.Positives++
		}
	}
	return b
}

func integrity(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component("dataset").
		Category(errors.CategoryIntegrityViolation).
		Build()
}
