// Package stage provides the single-stage commands. Each one reads its input
// snapshot from the store, so stages can be rerun independently.
package stage

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/pipeline"
)

// Stage names a pipeline stage command.
type Stage string

const (
	Ingest   Stage = "ingest"
	Clean    Stage = "clean"
	Features Stage = "features"
	Datasets Stage = "datasets"
)

var descriptions = map[Stage]struct{ short, long string }{
	Ingest: {
		"Read and coerce the raw extract",
		"Read the raw CSV extract, coerce every field to its registry type and save the staging-raw snapshot.",
	},
	Clean: {
		"Canonicalize staging-raw and run the staging gate",
		"Canonicalize tokens of staging-raw, validate domains and business invariants and save staging-clean.",
	},
	Features: {
		"Derive the feature table",
		"Derive profile, contract/service and tenure/billing features from staging-clean, validate them and save the features snapshot.",
	},
	Datasets: {
		"Assemble train, validation and inference datasets",
		"Attach labels, split train and validation stratified by churn, derive the inference dataset and validate all three before saving them.",
	},
}

// Command creates the command for stage s.
func Command(ctx *conf.Context, s Stage) *cobra.Command {
	d := descriptions[s]
	return &cobra.Command{
		Use:   string(s),
		Short: d.short,
		Long:  d.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Execute(cmd.Context(), ctx.Settings, string(s), func(c context.Context, p *pipeline.Pipeline) error {
				return runStage(c, p, s)
			})
		},
	}
}

func runStage(ctx context.Context, p *pipeline.Pipeline, s Stage) error {
	var err error
	switch s {
	case Ingest:
		_, err = p.Ingest(ctx)
	case Clean:
		_, err = p.Clean(ctx)
	case Features:
		_, err = p.Features(ctx)
	case Datasets:
		_, err = p.Datasets(ctx)
	default:
		err = fmt.Errorf("unknown stage %q", s)
	}
	return err
}
