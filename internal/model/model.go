// Package model is the baseline churn classifier that consumes the assembled
// datasets: one-hot categoricals, standardized numerics and a class-balanced
// logistic regression.
package model

import (
	"cmp"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Prediction columns.
const (
	ColProbability = "p_churn"
	ColPredicted   = "pred_churn"
)

// BundleVersion is bumped when the JSON layout changes.
const BundleVersion = 1

// TopCoefficients is the number of weights logged per direction after training.
const TopCoefficients = 15

// Model is a fitted encoder and classifier.
type Model struct {
	Version    int         `json:"version"`
	RunID      string      `json:"run_id,omitempty"`
	TrainedAt  time.Time   `json:"trained_at"`
	Config     Config      `json:"config"`
	Encoder    *Encoder    `json:"encoder"`
	Classifier *Logistic   `json:"classifier"`
	Validation *Evaluation `json:"validation,omitempty"`
}

// Fit trains a model on features with the 0/1 labels aligned to its rows.
func Fit(features *table.Table, labels []float64, cfg Config) (*Model, error) {
	enc, err := FitEncoder(features)
	if err != nil {
		return nil, trainingError(err)
	}
	x, err := enc.Transform(features)
	if err != nil {
		return nil, trainingError(err)
	}
	clf, err := FitLogistic(x, labels, cfg)
	if err != nil {
		return nil, trainingError(err)
	}
	return &Model{
		Version:    BundleVersion,
		TrainedAt:  time.Now().UTC(),
		Config:     cfg,
		Encoder:    enc,
		Classifier: clf,
	}, nil
}

// PredictProba returns the churn probability of every row of features.
func (m *Model) PredictProba(features *table.Table) ([]float64, error) {
	x, err := m.Encoder.Transform(features)
	if err != nil {
		return nil, predictionError(err)
	}
	p, err := m.Classifier.PredictProba(x)
	if err != nil {
		return nil, predictionError(err)
	}
	return p, nil
}

// Predict scores features and returns customer_id, p_churn and pred_churn.
// When features carries churn it is kept next to the key.
func (m *Model) Predict(features *table.Table) (*table.Table, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return nil, err
	}

	keep := []string{schema.ColCustomerID}
	if features.HasColumn(schema.ColChurn) {
		keep = append(keep, schema.ColChurn)
	}
	base, err := features.Select(keep...)
	if err != nil {
		return nil, predictionError(err)
	}

	out, err := table.New(append(base.Columns(),
		table.Column{Name: ColProbability, Kind: table.KindFloat},
		table.Column{Name: ColPredicted, Kind: table.KindInt},
	)...)
	if err != nil {
		return nil, predictionError(err)
	}
	for i, p := range proba {
		var pred int64
		if p >= m.Config.Threshold {
			pred = 1
		}
		if err := out.AppendRow(append(base.Row(i), table.Float(p), table.Int(pred))...); err != nil {
			return nil, predictionError(err)
		}
	}
	return out, nil
}

// Coefficient is a named model weight.
type Coefficient struct {
	Feature string
	Weight  float64
}

// Coefficients returns the weights ordered from most positive to most negative.
func (m *Model) Coefficients() []Coefficient {
	names := m.Encoder.Names()
	out := make([]Coefficient, len(names))
	for i, n := range names {
		out[i] = Coefficient{Feature: n, Weight: m.Classifier.Weights[i]}
	}
	slices.SortStableFunc(out, func(a, b Coefficient) int { return cmp.Compare(b.Weight, a.Weight) })
	return out
}

// LogCoefficients logs the strongest positive and negative weights.
func (m *Model) LogCoefficients(log logger.Logger) {
	coefs := m.Coefficients()
	n := min(TopCoefficients, len(coefs))

	rows := func(cs []Coefficient) [][]string {
		out := make([][]string, len(cs))
		for i, c := range cs {
			out[i] = []string{c.Feature, strconv.FormatFloat(c.Weight, 'f', 4, 64)}
		}
		return out
	}
	header := []string{"feature", "weight"}

	logger.Table(log, logger.LogLevelInfo, "top positive coefficients", header, rows(coefs[:n]), len(coefs), n)
	negative := slices.Clone(coefs[len(coefs)-n:])
	slices.Reverse(negative)
	logger.Table(log, logger.LogLevelInfo, "top negative coefficients", header, rows(negative), len(coefs), n)
}

// LogEvaluation logs validation metrics and the confusion matrix.
func LogEvaluation(log logger.Logger, ev Evaluation) {
	log.Info("validation metrics",
		logger.Int("rows", ev.Rows),
		logger.Float64("roc_auc", ev.ROCAUC),
		logger.Float64("average_precision", ev.AveragePrecision),
		logger.Float64("accuracy", ev.Confusion.Accuracy()),
		logger.Float64("precision", ev.Confusion.Precision()),
		logger.Float64("recall", ev.Confusion.Recall()),
		logger.Float64("f1", ev.Confusion.F1()))

	c := ev.Confusion
	logger.Table(log, logger.LogLevelInfo,
		fmt.Sprintf("confusion matrix @ threshold=%g", ev.Threshold),
		[]string{"", "pred 0", "pred 1"},
		[][]string{
			{"true 0", strconv.Itoa(c.TrueNegative), strconv.Itoa(c.FalsePositive)},
			{"true 1", strconv.Itoa(c.FalseNegative), strconv.Itoa(c.TruePositive)},
		}, 2, 0)
}

// Save writes the model as indented JSON.
func (m *Model) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("model").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(err, path)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.FileError(err, path)
	}
	return nil
}

// Load reads a model written by Save.
func Load(fs afero.Fs, path string) (*Model, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Context("hint", "run the train command first").
			Build()
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	if m.Version != BundleVersion || m.Encoder == nil || m.Classifier == nil {
		return nil, errors.Newf("model bundle %s has version %d, want %d", path, m.Version, BundleVersion).
			Component("model").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	if len(m.Classifier.Weights) != m.Encoder.Width() {
		return nil, errors.Newf("model bundle %s has %d weights for %d inputs", path, len(m.Classifier.Weights), m.Encoder.Width()).
			Component("model").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return &m, nil
}

// Labels extracts 0/1 targets from the churn column of a labeled dataset.
func Labels(t *table.Table) ([]float64, error) {
	if !t.HasColumn(schema.ColChurn) {
		return nil, trainingError(fmt.Errorf("dataset has no %s column", schema.ColChurn))
	}
	out := make([]float64, t.Len())
	for i := range out {
		v := t.Get(i, schema.ColChurn)
		n, ok := v.Number()
		if !ok {
			return nil, trainingError(fmt.Errorf("row %d: %s is %s", i, schema.ColChurn, v))
		}
		out[i] = n
	}
	return out, nil
}

func trainingError(err error) error {
	return errors.New(err).
		Component("model").
		Category(errors.CategoryModelTraining).
		Build()
}

func predictionError(err error) error {
	return errors.New(err).
		Component("model").
		Category(errors.CategoryModelTraining).
		Context("operation", "predict").
		Build()
}
