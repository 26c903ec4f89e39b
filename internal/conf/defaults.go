// conf/defaults.go default values for settings

package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/churnlab/churnprep/internal/logger"
)

// setDefaultConfig sets the default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("input.path", "data/raw/telco_customer_churn.csv")

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite.path", "data/churnprep.db")
	v.SetDefault("store.mysql.host", "localhost")
	v.SetDefault("store.mysql.port", 3306)
	v.SetDefault("store.mysql.username", "")
	v.SetDefault("store.mysql.password", "")
	v.SetDefault("store.mysql.database", "churnprep")
	v.SetDefault("store.cachettl", 10*time.Minute)
	v.SetDefault("store.slowquery", 200*time.Millisecond)

	v.SetDefault("validation.mode", ModeFailFast)
	v.SetDefault("validation.maxevidence", 10)

	v.SetDefault("dataset.seed", 42)
	v.SetDefault("dataset.validation_fraction", 0.2)
	v.SetDefault("dataset.balance_tolerance", 0.02)

	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.epochs", 300)
	v.SetDefault("model.l2", 0.001)
	v.SetDefault("model.threshold", 0.5)

	v.SetDefault("output.manifest", "data/manifest.yaml")
	v.SetDefault("output.model", "models/baseline.json")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", "debug")
}
