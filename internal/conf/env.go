// env.go - environment variable bindings and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment variables.
// Every other key is still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "CHURNPREP_DEBUG", validateEnvBool},
		{"input.path", "CHURNPREP_INPUT_PATH", nil},

		// Snapshot store
		{"store.driver", "CHURNPREP_STORE_DRIVER", validateEnvDriver},
		{"store.sqlite.path", "CHURNPREP_STORE_SQLITE_PATH", nil},
		{"store.mysql.host", "CHURNPREP_STORE_MYSQL_HOST", nil},
		{"store.mysql.port", "CHURNPREP_STORE_MYSQL_PORT", validateEnvPort},
		{"store.mysql.username", "CHURNPREP_STORE_MYSQL_USERNAME", nil},
		{"store.mysql.password", "CHURNPREP_STORE_MYSQL_PASSWORD", nil},
		{"store.mysql.database", "CHURNPREP_STORE_MYSQL_DATABASE", nil},

		// Gates and assembly
		{"validation.mode", "CHURNPREP_VALIDATION_MODE", validateEnvMode},
		{"dataset.seed", "CHURNPREP_DATASET_SEED", validateEnvSeed},
		{"dataset.validation_fraction", "CHURNPREP_DATASET_VALIDATION_FRACTION", validateEnvFraction},

		{"metrics.textfile", "CHURNPREP_METRICS_TEXTFILE", nil},
		{"logging.default_level", "CHURNPREP_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDriver(value string) error {
	switch strings.ToLower(value) {
	case DriverSQLite, DriverMySQL:
		return nil
	}
	return fmt.Errorf("must be %s or %s", DriverSQLite, DriverMySQL)
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvMode(value string) error {
	switch strings.ToLower(value) {
	case ModeFailFast, ModeCollect:
		return nil
	}
	return fmt.Errorf("must be %s or %s", ModeFailFast, ModeCollect)
}

func validateEnvSeed(value string) error {
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvFraction(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 || f >= 1 {
		return fmt.Errorf("must be a number strictly between 0 and 1")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}
