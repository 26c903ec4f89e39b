package predict

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/pipeline"
)

// Command creates the predict command.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score the inference dataset",
		Long:  "Load the model bundle, score every customer of the inference dataset and save the predictions snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Execute(cmd.Context(), ctx.Settings, "predict", func(c context.Context, p *pipeline.Pipeline) error {
				_, err := p.Predict(c)
				return err
			})
		},
	}

	cmd.Flags().StringP("model", "m", "", "Model bundle path")
	conf.MapFlag(cmd.Flags(), "model", "output.model")
	return cmd
}
