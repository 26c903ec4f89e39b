package check

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/pipeline"
)

// Command creates the check command.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Re-run every gate over the stored snapshots",
		Long:  "Validate staging-clean, features, train, validation and inference as currently stored, without writing any snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Execute(cmd.Context(), ctx.Settings, "check", func(c context.Context, p *pipeline.Pipeline) error {
				return p.Check(c)
			})
		},
	}
}
