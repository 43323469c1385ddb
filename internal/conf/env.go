// env.go - environment variable configuration and validation for skyarchive
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "SKYARCHIVE_DEBUG", validateEnvBool},

		// Archive
		{"archive.type", "SKYARCHIVE_ARCHIVE_TYPE", validateEnvArchiveType},
		{"archive.file_store", "SKYARCHIVE_ARCHIVE_FILE_STORE", nil},
		{"archive.sqlite.path", "SKYARCHIVE_ARCHIVE_SQLITE_PATH", nil},
		{"archive.mysql.host", "SKYARCHIVE_ARCHIVE_MYSQL_HOST", nil},
		{"archive.mysql.port", "SKYARCHIVE_ARCHIVE_MYSQL_PORT", validateEnvPort},
		{"archive.mysql.username", "SKYARCHIVE_ARCHIVE_MYSQL_USERNAME", nil},
		{"archive.mysql.password", "SKYARCHIVE_ARCHIVE_MYSQL_PASSWORD", nil},
		{"archive.mysql.database", "SKYARCHIVE_ARCHIVE_MYSQL_DATABASE", nil},
		{"archive.retry.max_attempts", "SKYARCHIVE_ARCHIVE_RETRY_MAX_ATTEMPTS", validateEnvPositiveInt},

		// Pipeline
		{"pipeline.workers", "SKYARCHIVE_PIPELINE_WORKERS", validateEnvNonNegativeInt},
		{"pipeline.deadline", "SKYARCHIVE_PIPELINE_DEADLINE", validateEnvDuration},
		{"pipeline.user", "SKYARCHIVE_PIPELINE_USER", nil},

		// Reference data
		{"refdata.satellites", "SKYARCHIVE_REFDATA_SATELLITES", nil},
		{"refdata.hipparcos", "SKYARCHIVE_REFDATA_HIPPARCOS", nil},

		// Observability
		{"metrics.textfile", "SKYARCHIVE_METRICS_TEXTFILE", nil},
		{"logging.default_level", "SKYARCHIVE_LOG_LEVEL", validateEnvLogLevel},
		{"sentry.enabled", "SKYARCHIVE_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "SKYARCHIVE_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvArchiveType(value string) error {
	if !slices.Contains(archiveTypes, value) {
		return fmt.Errorf("must be one of: %s", strings.Join(archiveTypes, ", "))
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must be non-negative, got %d", n)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", d)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains(logLevels, strings.ToLower(value)) {
		return fmt.Errorf("must be one of: %s", strings.Join(logLevels, ", "))
	}
	return nil
}
