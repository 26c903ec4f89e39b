package pipeline

import (
	"context"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/dataset"
	"github.com/churnlab/churnprep/internal/features"
	"github.com/churnlab/churnprep/internal/ingest"
	"github.com/churnlab/churnprep/internal/logger"
	metricspkg "github.com/churnlab/churnprep/internal/observability/metrics"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/snapshot"
	"github.com/churnlab/churnprep/internal/staging"
	"github.com/churnlab/churnprep/internal/table"
	"github.com/churnlab/churnprep/internal/validate"
)

// Ingest reads the raw extract, coerces it to the registry types and saves
// the staging-raw snapshot. Float anomalies are logged and counted; they do
// not fail the stage.
func (p *Pipeline) Ingest(ctx context.Context) (*table.Table, error) {
	var typed *table.Table
	err := p.stage(metricspkg.StageIngest, func() error {
		path := conf.ExpandPath(p.settings.Input.Path)
		p.manifest.Input = path

		batch, err := ingest.ReadCSV(p.fs, path)
		if err != nil {
			return err
		}
		log := p.log.Module("ingest")
		log.Info("raw extract read",
			logger.String("source", batch.Source),
			logger.Int("rows", batch.Len()),
			logger.Int("columns", len(batch.Header)))

		out, diag, err := ingest.NewEngine(schema.Telco, log).Coerce(batch)
		if err != nil {
			return err
		}
		for _, f := range diag.Fields {
			if p.manifest.Anomalies == nil {
				p.manifest.Anomalies = make(map[string]int)
			}
			p.manifest.Anomalies[f.Field] = f.Count
			if p.metrics != nil {
				p.metrics.Pipeline.RecordCoercionAnomalies(f.Field, f.Count)
			}
		}

		if err := p.save(ctx, snapshot.NameRaw, out); err != nil {
			return err
		}
		typed = out
		return nil
	})
	return typed, err
}

// Clean canonicalizes staging-raw, runs the staging gate and saves staging-clean.
func (p *Pipeline) Clean(ctx context.Context) (*table.Table, error) {
	var clean *table.Table
	err := p.stage(metricspkg.StageClean, func() error {
		raw, err := p.input(ctx, snapshot.NameRaw)
		if err != nil {
			return err
		}

		out, report := staging.Canonicalize(raw)
		report.Log(p.log.Module("staging"), out.Len())

		gateReport, err := validate.StagingGate(p.log.Module("validate"), p.gateOptions()...).Run(out)
		p.recordGate(gateReport)
		if err != nil {
			return err
		}

		if err := p.save(ctx, snapshot.NameClean, out); err != nil {
			return err
		}
		clean = out
		return nil
	})
	return clean, err
}

// Features derives the feature table from staging-clean, runs the feature
// gate and saves the features snapshot.
func (p *Pipeline) Features(ctx context.Context) (*table.Table, error) {
	var feats *table.Table
	err := p.stage(metricspkg.StageFeatures, func() error {
		clean, err := p.input(ctx, snapshot.NameClean)
		if err != nil {
			return err
		}

		out, err := features.NewDeriver(p.log.Module("features")).Derive(ctx, clean)
		if err != nil {
			return err
		}

		subject := validate.FeatureSubject{Features: out, ExpectedRows: clean.Len()}
		gateReport, err := validate.FeatureGate(p.log.Module("validate"), p.gateOptions()...).Run(subject)
		p.recordGate(gateReport)
		if err != nil {
			return err
		}

		if err := p.save(ctx, snapshot.NameFeatures, out); err != nil {
			return err
		}
		feats = out
		return nil
	})
	return feats, err
}

// Datasets attaches labels, splits train and validation, derives inference,
// runs the dataset gate and only then saves the three datasets.
func (p *Pipeline) Datasets(ctx context.Context) (dataset.Sets, error) {
	var sets dataset.Sets
	err := p.stage(metricspkg.StageDatasets, func() error {
		feats, err := p.input(ctx, snapshot.NameFeatures)
		if err != nil {
			return err
		}
		clean, err := p.input(ctx, snapshot.NameClean)
		if err != nil {
			return err
		}

		cfg := dataset.Config{
			Seed:               p.settings.Dataset.Seed,
			ValidationFraction: p.settings.Dataset.ValidationFraction,
			BalanceTolerance:   p.settings.Dataset.BalanceTolerance,
		}
		out, err := dataset.NewAssembler(cfg, p.log.Module("dataset")).Assemble(feats, clean)
		if err != nil {
			return err
		}

		gateReport, err := validate.DatasetGate(p.log.Module("validate"), p.gateOptions()...).Run(validate.Datasets(out))
		p.recordGate(gateReport)
		if err != nil {
			return err
		}

		if p.metrics != nil {
			p.metrics.Pipeline.SetChurnRate(validate.RoleTrain, dataset.ClassBalance(out.Train).Rate())
			p.metrics.Pipeline.SetChurnRate(validate.RoleValidation, dataset.ClassBalance(out.Validation).Rate())
		}

		for _, s := range []struct {
			name string
			t    *table.Table
		}{
			{snapshot.NameTrain, out.Train},
			{snapshot.NameValidation, out.Validation},
			{snapshot.NameInference, out.Inference},
		} {
			if err := p.save(ctx, s.name, s.t); err != nil {
				return err
			}
		}
		sets = out
		return nil
	})
	return sets, err
}

// Check re-runs every gate over the stored snapshots: staging-clean, features
// and the three datasets.
func (p *Pipeline) Check(ctx context.Context) error {
	return p.stage(metricspkg.StageCheck, func() error {
		log := p.log.Module("validate")

		clean, err := p.input(ctx, snapshot.NameClean)
		if err != nil {
			return err
		}
		report, err := validate.StagingGate(log, p.gateOptions()...).Run(clean)
		p.recordGate(report)
		if err != nil {
			return err
		}

		feats, err := p.input(ctx, snapshot.NameFeatures)
		if err != nil {
			return err
		}
		report, err = validate.FeatureGate(log, p.gateOptions()...).Run(validate.FeatureSubject{Features: feats, ExpectedRows: clean.Len()})
		p.recordGate(report)
		if err != nil {
			return err
		}

		var sets validate.Datasets
		for _, s := range []struct {
			name string
			dst  **table.Table
		}{
			{snapshot.NameTrain, &sets.Train},
			{snapshot.NameValidation, &sets.Validation},
			{snapshot.NameInference, &sets.Inference},
		} {
			t, err := p.input(ctx, s.name)
			if err != nil {
				return err
			}
			*s.dst = t
		}
		report, err = validate.DatasetGate(log, p.gateOptions()...).Run(sets)
		p.recordGate(report)
		return err
	})
}
