package snapshots

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/snapshot"
)

// Command creates the snapshots command with its list and delete subcommands.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect the snapshot store",
	}
	cmd.AddCommand(listCommand(ctx), deleteCommand(ctx))
	return cmd
}

func listCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.Open(cmd.Context(), ctx.Settings.Store, logger.Global().Module("snapshot"))
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no snapshots stored")
				return err
			}

			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{
					info.Name,
					strconv.Itoa(info.Rows),
					strconv.Itoa(info.Columns),
					info.RunID,
					info.CreatedAt.Local().Format(time.DateTime),
					info.Checksum[:min(12, len(info.Checksum))],
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), logger.RenderTable(
				[]string{"name", "rows", "columns", "run_id", "created", "checksum"}, rows))
			return err
		},
	}
}

func deleteCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME...",
		Short: "Delete snapshots by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.Open(cmd.Context(), ctx.Settings.Store, logger.Global().Module("snapshot"))
			if err != nil {
				return err
			}
			defer store.Close()

			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}
				logger.Global().Module("snapshot").Info("snapshot deleted", logger.String("snapshot", name))
			}
			return nil
		},
	}
}
