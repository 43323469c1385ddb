package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"bool ok", validateEnvBool, "true", false},
		{"bool bad", validateEnvBool, "yes please", true},
		{"archive sqlite", validateEnvArchiveType, "sqlite", false},
		{"archive unknown", validateEnvArchiveType, "postgres", true},
		{"port ok", validateEnvPort, "3306", false},
		{"port range", validateEnvPort, "70000", true},
		{"workers zero", validateEnvNonNegativeInt, "0", false},
		{"workers negative", validateEnvNonNegativeInt, "-1", true},
		{"attempts zero", validateEnvPositiveInt, "0", true},
		{"duration ok", validateEnvDuration, "2h", false},
		{"duration bad", validateEnvDuration, "soon", true},
		{"level upper", validateEnvLogLevel, "DEBUG", false},
		{"level bad", validateEnvLogLevel, "verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvBindingsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		assert.False(t, seen[b.EnvVar], "duplicate binding %s", b.EnvVar)
		seen[b.EnvVar] = true
		assert.Regexp(t, `^SKYARCHIVE_[A-Z_]+$`, b.EnvVar)
	}
}
