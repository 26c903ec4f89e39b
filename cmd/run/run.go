package run

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/pipeline"
)

// Command creates the run command that executes every preparation stage.
func Command(ctx *conf.Context) *cobra.Command {
	var withTrain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, clean, features and datasets",
		Long:  "Run the whole preparation pipeline. The first failing stage or gate stops the run and no later snapshot is written.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Execute(cmd.Context(), ctx.Settings, "run", func(c context.Context, p *pipeline.Pipeline) error {
				if err := p.Run(c); err != nil {
					return err
				}
				if !withTrain {
					return nil
				}
				if _, err := p.Train(c); err != nil {
					return err
				}
				_, err := p.Predict(c)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&withTrain, "train", false, "Also train the baseline model and score the inference dataset")
	return cmd
}
