package conf

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// keyAnnotation marks a flag with the config key it overrides.
const keyAnnotation = "churnprep.config-key"

// Context is shared by the commands of one invocation. Settings is nil until
// the root command has loaded the configuration.
type Context struct {
	ConfigFile string
	Settings   *Settings
}

// MapFlag records that flag name of fs overrides config key.
func MapFlag(fs *pflag.FlagSet, name, key string) {
	// SetAnnotation only fails for unknown flags
	_ = fs.SetAnnotation(name, keyAnnotation, []string{key})
}

// BindFlags binds the mapped flags of the command being executed, including
// inherited ones, to their config keys. Call it before Load so flag values
// take precedence over the config file and environment. Only flags of the
// executed command are bound, so two commands may map the same key.
func BindFlags(cmd *cobra.Command) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		keys := f.Annotations[keyAnnotation]
		if bindErr != nil || len(keys) == 0 {
			return
		}
		bindErr = viper.BindPFlag(keys[0], f)
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return bindErr
}
