// Package pipeline runs the churn preparation stages in order, gating each
// stage boundary and persisting its output as a named snapshot.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/observability"
	metricspkg "github.com/churnlab/churnprep/internal/observability/metrics"
	"github.com/churnlab/churnprep/internal/snapshot"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/validate"
)

// Store persists stage outputs.
type Store interface {
	Save(ctx context.Context, name, runID string, t *table.Table) (snapshot.Info, error)
	Load(ctx context.Context, name string) (*table.Table, snapshot.Info, error)
}

// Pipeline holds the state of one run. It is not safe for concurrent use.
type Pipeline struct {
	settings *conf.Settings
	store    Store
	fs       afero.Fs
	metrics  *observability.Metrics
	log      logger.Logger
	runID    string
	mode     validate.Mode

	produced map[string]*table.Table
	manifest *snapshot.Manifest
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs sets the filesystem for the raw input, manifest and model bundle.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithMetrics records stage, gate and snapshot metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger; stage packages log through its modules.
func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New returns a pipeline over store configured by settings.
func New(settings *conf.Settings, store Store, opts ...Option) (*Pipeline, error) {
	mode, err := validate.ParseMode(settings.Validation.Mode)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		settings: settings,
		store:    store,
		fs:       afero.NewOsFs(),
		runID:    uuid.NewString(),
		mode:     mode,
		produced: make(map[string]*table.Table),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Global().Module("pipeline")
	}
	p.log = p.log.With(logger.String("run_id", p.runID))

	p.manifest = &snapshot.Manifest{
		RunID:     p.runID,
		StartedAt: time.Now().UTC(),
		Settings: snapshot.ManifestConfig{
			Seed:               settings.Dataset.Seed,
			ValidationFraction: settings.Dataset.ValidationFraction,
			ValidationMode:     string(mode),
			StoreDriver:        settings.Store.Driver,
		},
	}
	return p, nil
}

// RunID identifies the snapshots written by this pipeline.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Manifest returns the manifest accumulated so far.
func (p *Pipeline) Manifest() *snapshot.Manifest {
	return p.manifest
}

// Run executes ingestion, cleaning, feature derivation and dataset assembly.
// The first failing stage or gate stops the run.
func (p *Pipeline) Run(ctx context.Context) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { _, err := p.Ingest(ctx); return err },
		func(ctx context.Context) error { _, err := p.Clean(ctx); return err },
		func(ctx context.Context) error { _, err := p.Features(ctx); return err },
		func(ctx context.Context) error { _, err := p.Datasets(ctx); return err },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Finish stamps the manifest for command, writes it when an output path is
// configured and exports metrics to the textfile.
func (p *Pipeline) Finish(command string) error {
	p.manifest.Command = command
	p.manifest.FinishedAt = time.Now().UTC()

	if path := conf.ExpandPath(p.settings.Output.Manifest); path != "" {
		if err := snapshot.WriteManifest(p.fs, path, p.manifest); err != nil {
			return err
		}
		p.log.Info("manifest written",
			logger.String("path", path),
			logger.Int("snapshots", len(p.manifest.Snapshots)))
	}
	return p.WriteMetrics()
}

// WriteMetrics exports metrics to the configured textfile, if any.
func (p *Pipeline) WriteMetrics() error {
	if p.metrics == nil {
		return nil
	}
	return p.metrics.WriteTextfile(conf.ExpandPath(p.settings.Metrics.Textfile))
}

// stage times fn and records its outcome.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	p.log.Info("stage started", logger.String("stage", name))

	err := fn()
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.Pipeline.RecordStage(name, elapsed, err)
	}
	if err != nil {
		p.log.Error("stage failed",
			logger.String("stage", name),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return err
	}
	p.log.Info("stage completed",
		logger.String("stage", name),
		logger.Duration("elapsed", elapsed))
	return nil
}

// input returns a table produced earlier in this run, or loads it from the store.
func (p *Pipeline) input(ctx context.Context, name string) (*table.Table, error) {
	if t, ok := p.produced[name]; ok {
		return t, nil
	}
	start := time.Now()
	t, info, err := p.store.Load(ctx, name)
	if p.metrics != nil {
		p.metrics.Snapshot.RecordOperation(metricspkg.OpLoad, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	p.log.Debug("input snapshot loaded",
		logger.String("snapshot", name),
		logger.String("source_run_id", info.RunID),
		logger.Int("rows", info.Rows))
	return t, nil
}

// save writes t under name and records it in the manifest.
func (p *Pipeline) save(ctx context.Context, name string, t *table.Table) error {
	start := time.Now()
	info, err := p.store.Save(ctx, name, p.runID, t)
	if p.metrics != nil {
		p.metrics.Snapshot.RecordOperation(metricspkg.OpSave, time.Since(start), err)
	}
	if err != nil {
		return err
	}
	p.produced[name] = t
	p.manifest.Add(info)
	if p.metrics != nil {
		p.metrics.Snapshot.RecordRowsWritten(name, info.Rows)
		p.metrics.Pipeline.SetSnapshotRows(name, info.Rows)
	}
	return nil
}

// gateOptions applies the configured mode, evidence limit and metrics observer.
func (p *Pipeline) gateOptions() []validate.GateOption {
	opts := []validate.GateOption{
		validate.WithMode(p.mode),
		validate.WithMaxLogged(p.settings.Validation.MaxEvidence),
	}
	if p.metrics != nil {
		opts = append(opts, validate.WithObserver(p.metrics.Pipeline))
	}
	return opts
}

// recordGate adds a gate report to the manifest.
func (p *Pipeline) recordGate(report validate.Report) {
	outcome := snapshot.GateOutcome{Gate: report.Gate, Checks: len(report.Results)}
	for _, f := range report.Failures() {
		outcome.Failed = append(outcome.Failed, f.Check)
	}
	p.manifest.Gates = append(p.manifest.Gates, outcome)
}
