package train

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/pipeline"
)

// Command creates the train command.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the baseline classifier",
		Long:  "Fit the baseline logistic regression on the train dataset, report validation metrics and write the model bundle.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Execute(cmd.Context(), ctx.Settings, "train", func(c context.Context, p *pipeline.Pipeline) error {
				_, err := p.Train(c)
				return err
			})
		},
	}

	setupFlags(cmd)
	return cmd
}

func setupFlags(cmd *cobra.Command) {
	cmd.Flags().Int("epochs", 0, "Gradient descent epochs")
	cmd.Flags().Float64("learning-rate", 0, "Gradient descent step size")
	cmd.Flags().Float64("threshold", 0, "Decision threshold for the confusion matrix and predictions")
	cmd.Flags().StringP("output", "o", "", "Model bundle path")

	conf.MapFlag(cmd.Flags(), "epochs", "model.epochs")
	conf.MapFlag(cmd.Flags(), "learning-rate", "model.learning_rate")
	conf.MapFlag(cmd.Flags(), "threshold", "model.threshold")
	conf.MapFlag(cmd.Flags(), "output", "output.model")
}
