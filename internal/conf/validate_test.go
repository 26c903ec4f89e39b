package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Input.Path = "raw.csv"
	s.Store.Driver = DriverSQLite
	s.Store.SQLite.Path = ":memory:"
	s.Validation.Mode = ModeFailFast
	s.Validation.MaxEvidence = 10
	s.Dataset.Seed = 42
	s.Dataset.ValidationFraction = 0.2
	s.Model.LearningRate = 0.1
	s.Model.Epochs = 10
	s.Model.Threshold = 0.5
	s.Logging.Timezone = "UTC"
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "valid", mutate: func(*Settings) {}},
		{name: "empty input", mutate: func(s *Settings) { s.Input.Path = " " }, wantErr: "input path"},
		{name: "unknown driver", mutate: func(s *Settings) { s.Store.Driver = "postgres" }, wantErr: "unknown store driver"},
		{name: "mysql without host", mutate: func(s *Settings) {
			s.Store.Driver = DriverMySQL
			s.Store.MySQL.Port = 3306
			s.Store.MySQL.Database = "churn"
		}, wantErr: "mysql host"},
		{name: "bad mode", mutate: func(s *Settings) { s.Validation.Mode = "lenient" }, wantErr: "validation mode"},
		{name: "zero evidence", mutate: func(s *Settings) { s.Validation.MaxEvidence = 0 }, wantErr: "maxevidence"},
		{name: "fraction of one", mutate: func(s *Settings) { s.Dataset.ValidationFraction = 1 }, wantErr: "validation_fraction"},
		{name: "zero epochs", mutate: func(s *Settings) { s.Model.Epochs = 0 }, wantErr: "epochs"},
		{name: "bad timezone", mutate: func(s *Settings) { s.Logging.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Input.Path = ""
	s.Validation.Mode = "bogus"
	s.Dataset.ValidationFraction = 0

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateSettingsNormalizesCase(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Store.Driver = "SQLite"
	s.Validation.Mode = "COLLECT"

	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, DriverSQLite, s.Store.Driver)
	assert.Equal(t, ModeCollect, s.Validation.Mode)
}
