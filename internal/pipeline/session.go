package pipeline

import (
	"context"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/observability"
	"github.com/churnlab/churnprep/internal/snapshot"
)

// Execute opens the configured snapshot store, runs fn on a fresh pipeline and
// finishes it under command. The manifest and metrics are written even when
// fn fails, so a failed gate is recorded.
func Execute(ctx context.Context, settings *conf.Settings, command string, fn func(context.Context, *Pipeline) error) error {
	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	m.CountErrors()

	store, err := snapshot.Open(ctx, settings.Store, logger.Global().Module("snapshot"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Global().Module("snapshot").Warn("closing snapshot store", logger.Error(cerr))
		}
	}()

	p, err := New(settings, store, WithMetrics(m), WithLogger(logger.Global().Module("pipeline")))
	if err != nil {
		return err
	}

	runErr := fn(ctx, p)
	if err := p.Finish(command); err != nil {
		if runErr == nil {
			return err
		}
		p.log.Warn("finishing run after failure", logger.Error(err))
	}
	return runErr
}
