// Package conf loads churnprep settings from defaults, an optional YAML config
// file, CHURNPREP_ environment variables and bound command-line flags.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "CHURNPREP"

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Validation modes
const (
	ModeFailFast = "failfast" // stop at the first failing check of a gate
	ModeCollect  = "collect"  // run every check of a gate and report all failures
)

// InputSettings locates the raw extract.
type InputSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // CSV file with the Telco headers
}

// SQLiteSettings contains settings for the SQLite snapshot database.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // ":memory:" keeps snapshots in process
}

// MySQLSettings contains settings for the MySQL snapshot database.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// StoreSettings selects and configures the snapshot store.
type StoreSettings struct {
	Driver    string         `yaml:"driver" mapstructure:"driver"`
	SQLite    SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL     MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
	CacheTTL  time.Duration  `yaml:"cachettl" mapstructure:"cachettl"`   // lifetime of loaded snapshots in the read cache
	SlowQuery time.Duration  `yaml:"slowquery" mapstructure:"slowquery"` // queries above this are logged at warn
}

// ValidationSettings controls how gates run and report.
type ValidationSettings struct {
	Mode        string `yaml:"mode" mapstructure:"mode"`               // failfast or collect
	MaxEvidence int    `yaml:"maxevidence" mapstructure:"maxevidence"` // rows rendered per evidence table
}

// DatasetSettings controls dataset assembly.
type DatasetSettings struct {
	Seed               uint64  `yaml:"seed" mapstructure:"seed"`
	ValidationFraction float64 `yaml:"validation_fraction" mapstructure:"validation_fraction"`
	BalanceTolerance   float64 `yaml:"balance_tolerance" mapstructure:"balance_tolerance"` // churn rate drift between partitions before warning
}

// ModelSettings configures the baseline classifier.
type ModelSettings struct {
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	Epochs       int     `yaml:"epochs" mapstructure:"epochs"`
	L2           float64 `yaml:"l2" mapstructure:"l2"`
	Threshold    float64 `yaml:"threshold" mapstructure:"threshold"`
}

// OutputSettings lists files written next to the snapshot store.
type OutputSettings struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"` // YAML run manifest, empty disables
	Model    string `yaml:"model" mapstructure:"model"`       // JSON model bundle
}

// MetricsSettings controls metrics export.
type MetricsSettings struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"` // node-exporter textfile, empty disables
}

// Settings contains all configuration options for churnprep.
type Settings struct {
	Debug      bool                 `yaml:"debug" mapstructure:"debug"`
	Input      InputSettings        `yaml:"input" mapstructure:"input"`
	Store      StoreSettings        `yaml:"store" mapstructure:"store"`
	Validation ValidationSettings   `yaml:"validation" mapstructure:"validation"`
	Dataset    DatasetSettings      `yaml:"dataset" mapstructure:"dataset"`
	Model      ModelSettings        `yaml:"model" mapstructure:"model"`
	Output     OutputSettings       `yaml:"output" mapstructure:"output"`
	Metrics    MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Logging    logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file and environment overrides into a
// validated Settings. An empty configFile searches the default config paths;
// a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("configuration loaded",
		logger.String("config_file", viper.ConfigFileUsed()),
		logger.String("store_driver", settings.Store.Driver),
		logger.String("validation_mode", settings.Validation.Mode))

	settingsInstance = settings
	return settingsInstance, nil
}

// load does the work of Load against the given viper instance.
func load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-settings").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate-settings").
			Build()
	}

	return settings, nil
}

// initViper registers defaults and environment bindings, then reads the config file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file: %w", err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				FileContext(configFile).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// defaults and environment are enough to run
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// DefaultConfig returns the embedded reference config.yaml.
func DefaultConfig() (string, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("operation", "read-embedded-config").
			Build()
	}
	return string(data), nil
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetLogger returns the config package logger scoped to the config module.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
