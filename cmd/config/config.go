package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
)

// Command creates a command that prints the reference configuration.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the reference config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.DefaultConfig()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), data)
			return err
		},
	}
}
