package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/churnlab/churnprep/cmd/check"
	"github.com/churnlab/churnprep/cmd/config"
	"github.com/churnlab/churnprep/cmd/predict"
	"github.com/churnlab/churnprep/cmd/run"
	"github.com/churnlab/churnprep/cmd/snapshots"
	"github.com/churnlab/churnprep/cmd/stage"
	"github.com/churnlab/churnprep/cmd/train"
	"github.com/churnlab/churnprep/internal/conf"
	"github.com/churnlab/churnprep/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "churnprep",
		Short:         "Churn dataset preparation pipeline",
		Long:          "Ingest the raw telco extract, clean and validate it, derive features and assemble train, validation and inference datasets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx)

	configCmd := config.Command()
	subcommands := []*cobra.Command{
		stage.Command(ctx, stage.Ingest),
		stage.Command(ctx, stage.Clean),
		stage.Command(ctx, stage.Features),
		stage.Command(ctx, stage.Datasets),
		check.Command(ctx),
		run.Command(ctx),
		train.Command(ctx),
		predict.Command(ctx),
		snapshots.Command(ctx),
		configCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// printing the reference config needs no settings
		if cmd.Name() == configCmd.Name() {
			return nil
		}
		if err := conf.BindFlags(cmd); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
		return initialize(ctx)
	}

	return rootCmd
}

// initialize loads the settings, with bound flags taking precedence, and sets
// up the global logger.
func initialize(ctx *conf.Context) error {
	settings, err := conf.Load(ctx.ConfigFile)
	if err != nil {
		return err
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.SetGlobal(cl)

	ctx.Settings = settings
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *conf.Context) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to the config file (default: search ./config.yaml and the user config dir)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.StringP("input", "i", "", "Raw telco extract (CSV)")
	flags.String("store", "", "Snapshot store driver: sqlite or mysql")
	flags.String("db", "", "SQLite snapshot database path")
	flags.String("mode", "", "Gate mode: failfast or collect")
	flags.Uint64("seed", 0, "Seed of the train/validation split")
	flags.Float64("validation-fraction", 0, "Share of labeled rows held out for validation")
	flags.String("manifest", "", "Run manifest output path")
	flags.String("metrics-textfile", "", "Write metrics to this node-exporter textfile")

	for flag, key := range map[string]string{
		"debug":               "debug",
		"input":               "input.path",
		"store":               "store.driver",
		"db":                  "store.sqlite.path",
		"mode":                "validation.mode",
		"seed":                "dataset.seed",
		"validation-fraction": "dataset.validation_fraction",
		"manifest":            "output.manifest",
		"metrics-textfile":    "metrics.textfile",
	} {
		conf.MapFlag(flags, flag, key)
	}
}
