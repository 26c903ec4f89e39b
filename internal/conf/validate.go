// conf/validate.go

package conf

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and normalizes enum
// values to lower case. All problems are reported together.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateInputSettings(&settings.Input); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateStoreSettings(&settings.Store); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateValidationSettings(&settings.Validation); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatasetSettings(&settings.Dataset); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateModelSettings(&settings.Model); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if tz := settings.Logging.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("logging timezone %q is not a valid IANA name", tz))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateInputSettings(settings *InputSettings) error {
	if strings.TrimSpace(settings.Path) == "" {
		return fmt.Errorf("input path must not be empty")
	}
	return nil
}

func validateStoreSettings(settings *StoreSettings) error {
	var errs []string

	settings.Driver = strings.ToLower(settings.Driver)
	switch settings.Driver {
	case DriverSQLite:
		if settings.SQLite.Path == "" {
			errs = append(errs, "sqlite path must not be empty")
		}
	case DriverMySQL:
		if settings.MySQL.Host == "" {
			errs = append(errs, "mysql host must not be empty")
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			errs = append(errs, fmt.Sprintf("mysql port %d is out of range", settings.MySQL.Port))
		}
		if settings.MySQL.Database == "" {
			errs = append(errs, "mysql database must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown store driver %q, expected %s or %s", settings.Driver, DriverSQLite, DriverMySQL))
	}

	if settings.CacheTTL < 0 {
		errs = append(errs, "store cache TTL must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("store settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateValidationSettings(settings *ValidationSettings) error {
	settings.Mode = strings.ToLower(settings.Mode)
	if settings.Mode != ModeFailFast && settings.Mode != ModeCollect {
		return fmt.Errorf("validation mode %q must be %s or %s", settings.Mode, ModeFailFast, ModeCollect)
	}
	if settings.MaxEvidence < 1 {
		return fmt.Errorf("validation maxevidence must be at least 1, got %d", settings.MaxEvidence)
	}
	return nil
}

func validateDatasetSettings(settings *DatasetSettings) error {
	if settings.ValidationFraction <= 0 || settings.ValidationFraction >= 1 {
		return fmt.Errorf("dataset validation_fraction must be strictly between 0 and 1, got %v", settings.ValidationFraction)
	}
	if settings.BalanceTolerance < 0 {
		return fmt.Errorf("dataset balance_tolerance must not be negative")
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	var errs []string
	if settings.LearningRate <= 0 {
		errs = append(errs, "learning_rate must be positive")
	}
	if settings.Epochs < 1 {
		errs = append(errs, "epochs must be at least 1")
	}
	if settings.L2 < 0 {
		errs = append(errs, "l2 must not be negative")
	}
	if settings.Threshold <= 0 || settings.Threshold >= 1 {
		errs = append(errs, "threshold must be strictly between 0 and 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("model settings: %s", strings.Join(errs, "; "))
	}
	return nil
}
