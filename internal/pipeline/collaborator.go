package pipeline

import (
	"context"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/model"
	metricspkg "github.com/churnlab/churnprep/internal/observability/metrics"
	"github.com/churnlab/churnprep/internal/snapshot"
	"github.com/churnlab/churnprep/internal/table"
)

// modelConfig maps the model settings onto the classifier config. Zero values
// fall back to the classifier defaults.
func (p *Pipeline) modelConfig() model.Config {
	cfg := model.DefaultConfig()
	s := p.settings.Model
	if s.LearningRate > 0 {
		cfg.LearningRate = s.LearningRate
	}
	if s.Epochs > 0 {
		cfg.Epochs = s.Epochs
	}
	if s.L2 >= 0 {
		cfg.L2 = s.L2
	}
	if s.Threshold > 0 && s.Threshold < 1 {
		cfg.Threshold = s.Threshold
	}
	return cfg
}

// Train fits the baseline classifier on the train dataset, scores the
// validation dataset and writes the model bundle plus the validation
// predictions snapshot.
func (p *Pipeline) Train(ctx context.Context) (*model.Model, error) {
	var trained *model.Model
	err := p.stage(metricspkg.StageTrain, func() error {
		train, err := p.input(ctx, snapshot.NameTrain)
		if err != nil {
			return err
		}
		val, err := p.input(ctx, snapshot.NameValidation)
		if err != nil {
			return err
		}

		labels, err := model.Labels(train)
		if err != nil {
			return err
		}
		cfg := p.modelConfig()
		m, err := model.Fit(train, labels, cfg)
		if err != nil {
			return err
		}
		m.RunID = p.runID

		log := p.log.Module("model")
		log.Info("classifier fitted",
			logger.Int("rows", train.Len()),
			logger.Int("inputs", m.Encoder.Width()),
			logger.Int("epochs", cfg.Epochs))
		m.LogCoefficients(log)

		valLabels, err := model.Labels(val)
		if err != nil {
			return err
		}
		proba, err := m.PredictProba(val)
		if err != nil {
			return err
		}
		ev, err := model.Evaluate(valLabels, proba, cfg.Threshold)
		if err != nil {
			return err
		}
		m.Validation = &ev
		model.LogEvaluation(log, ev)

		path := conf.ExpandPath(p.settings.Output.Model)
		if err := m.Save(p.fs, path); err != nil {
			return err
		}
		log.Info("model bundle written", logger.String("path", path))

		preds, err := m.Predict(val)
		if err != nil {
			return err
		}
		if err := p.save(ctx, snapshot.NameValidationPredictions, preds); err != nil {
			return err
		}

		if p.metrics != nil {
			p.metrics.Pipeline.SetModelScore("roc_auc", ev.ROCAUC)
			p.metrics.Pipeline.SetModelScore("average_precision", ev.AveragePrecision)
			p.metrics.Pipeline.SetModelScore("accuracy", ev.Confusion.Accuracy())
		}
		p.manifest.Model = &snapshot.ModelSummary{
			Path:             path,
			ROCAUC:           ev.ROCAUC,
			AveragePrecision: ev.AveragePrecision,
			Threshold:        ev.Threshold,
		}
		trained = m
		return nil
	})
	return trained, err
}

// Predict scores the inference dataset with the saved model bundle and saves
// the predictions snapshot.
func (p *Pipeline) Predict(ctx context.Context) (*table.Table, error) {
	var preds *table.Table
	err := p.stage(metricspkg.StagePredict, func() error {
		path := conf.ExpandPath(p.settings.Output.Model)
		m, err := model.Load(p.fs, path)
		if err != nil {
			return err
		}
		inference, err := p.input(ctx, snapshot.NameInference)
		if err != nil {
			return err
		}

		out, err := m.Predict(inference)
		if err != nil {
			return err
		}
		if err := p.save(ctx, snapshot.NamePredictions, out); err != nil {
			return err
		}

		var flagged int
		for i := range out.Len() {
			if out.Get(i, model.ColPredicted).Int() == 1 {
				flagged++
			}
		}
		p.log.Module("model").Info("inference scored",
			logger.String("model_run_id", m.RunID),
			logger.Int("rows", out.Len()),
			logger.Int("predicted_churners", flagged))
		preds = out
		return nil
	})
	return preds, err
}
