package snapshot

import (
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/churnlab/churnprep/internal/errors"
)

// Manifest records what one pipeline run wrote.
type Manifest struct {
	RunID      string         `yaml:"run_id"`
	Command    string         `yaml:"command"`
	Input      string         `yaml:"input,omitempty"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Settings   ManifestConfig `yaml:"settings"`
	Anomalies  map[string]int `yaml:"coercion_anomalies,omitempty"` // float fields that produced nulls
	Gates      []GateOutcome  `yaml:"gates,omitempty"`
	Snapshots  []Info         `yaml:"snapshots"`
	Model      *ModelSummary  `yaml:"model,omitempty"`
}

// ManifestConfig is the subset of settings that determines the outputs.
type ManifestConfig struct {
	Seed               uint64  `yaml:"seed"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	ValidationMode     string  `yaml:"validation_mode"`
	StoreDriver        string  `yaml:"store_driver"`
}

// GateOutcome summarizes a gate run.
type GateOutcome struct {
	Gate   string   `yaml:"gate"`
	Checks int      `yaml:"checks"`
	Failed []string `yaml:"failed,omitempty"`
}

// ModelSummary carries validation metrics of the baseline classifier.
type ModelSummary struct {
	Path             string  `yaml:"path"`
	ROCAUC           float64 `yaml:"roc_auc"`
	AveragePrecision float64 `yaml:"average_precision"`
	Threshold        float64 `yaml:"threshold"`
}

// Add appends or replaces the entry for info.Name.
func (m *Manifest) Add(info Info) {
	for i := range m.Snapshots {
		if m.Snapshots[i].Name == info.Name {
			m.Snapshots[i] = info
			return
		}
	}
	m.Snapshots = append(m.Snapshots, info)
}

// Snapshot returns the entry for name.
func (m *Manifest) Snapshot(name string) (Info, bool) {
	for _, s := range m.Snapshots {
		if s.Name == name {
			return s, true
		}
	}
	return Info{}, false
}

// WriteManifest writes m as YAML to path, creating parent directories.
func WriteManifest(fs afero.Fs, path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.New(err).
			Component("snapshot").
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

// ReadManifest parses a manifest written by WriteManifest.
func ReadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(err).
			Component("snapshot").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return &m, nil
}
