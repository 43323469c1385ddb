// config.go: settings struct for skyarchive and the functions that load it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/skyarchive/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// ArchiveSettings selects and tunes the archive backend.
type ArchiveSettings struct {
	Type               string         `yaml:"type" mapstructure:"type"` // "sqlite" or "mysql"
	Debug              bool           `yaml:"debug" mapstructure:"debug"`
	SlowQueryThreshold time.Duration  `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	FileStore          string         `yaml:"file_store" mapstructure:"file_store"` // root directory of image and video blobs
	SQLite             SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
	Retry              RetrySettings  `yaml:"retry" mapstructure:"retry"`
	WriteRateLimit     float64        `yaml:"write_rate_limit" mapstructure:"write_rate_limit"` // observation commits per second, 0 is unlimited
	WriteBurst         int            `yaml:"write_burst" mapstructure:"write_burst"`
}

// SQLiteSettings for the default single-file archive.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings for a shared archive server.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// RetrySettings is the backoff policy for archive-unavailable errors.
type RetrySettings struct {
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// RefDataSettings holds the paths of read-only reference files.
type RefDataSettings struct {
	Cameras       string `yaml:"cameras" mapstructure:"cameras"`
	Lenses        string `yaml:"lenses" mapstructure:"lenses"`
	Observatories string `yaml:"observatories" mapstructure:"observatories"`
	Showers       string `yaml:"showers" mapstructure:"showers"`
	Hipparcos     string `yaml:"hipparcos" mapstructure:"hipparcos"`
	Satellites    string `yaml:"satellites" mapstructure:"satellites"`
}

// ResolverSettings tune the observatory-state resolver.
type ResolverSettings struct {
	FitQualityThreshold float64       `yaml:"fit_quality_threshold" mapstructure:"fit_quality_threshold"`
	Window              time.Duration `yaml:"window" mapstructure:"window"` // half-width of the per-image fit search
	CacheTTL            time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// CalibrationSettings tune the lens and pointing fit.
type CalibrationSettings struct {
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MinStars      int     `yaml:"min_stars" mapstructure:"min_stars"`
	NightOnly     bool    `yaml:"night_only" mapstructure:"night_only"`
	Twilight      string  `yaml:"twilight" mapstructure:"twilight"` // civil, nautical or astronomical
}

// ShowerSettings tune the shower likelihood model.
type ShowerSettings struct {
	Sigma          float64 `yaml:"sigma" mapstructure:"sigma"` // degrees
	SporadicRate   float64 `yaml:"sporadic_rate" mapstructure:"sporadic_rate"`
	PeakWindowDays float64 `yaml:"peak_window_days" mapstructure:"peak_window_days"`
	OffPeakZHR     float64 `yaml:"off_peak_zhr" mapstructure:"off_peak_zhr"`
}

// SatelliteSettings tune SGP4 candidate matching.
type SatelliteSettings struct {
	EpochWindow     time.Duration `yaml:"epoch_window" mapstructure:"epoch_window"`
	QuickReject     float64       `yaml:"quick_reject" mapstructure:"quick_reject"`           // degrees
	AcceptMismatch  float64       `yaml:"accept_mismatch" mapstructure:"accept_mismatch"`     // degrees
	ClockPriorScale float64       `yaml:"clock_prior_scale" mapstructure:"clock_prior_scale"` // seconds
}

// TriangulationSettings tune the multi-station line fit.
type TriangulationSettings struct {
	MinSightLines int     `yaml:"min_sight_lines" mapstructure:"min_sight_lines"`
	MaxMismatch   float64 `yaml:"max_mismatch" mapstructure:"max_mismatch"` // degrees
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// SimultaneousSettings tune the clusterer.
type SimultaneousSettings struct {
	MinBaseline    float64 `yaml:"min_baseline" mapstructure:"min_baseline"`       // metres
	TouchTolerance float64 `yaml:"touch_tolerance" mapstructure:"touch_tolerance"` // seconds
}

// FrameDropSettings tune the frame-drop test.
type FrameDropSettings struct {
	Window      int     `yaml:"window" mapstructure:"window"`
	MinDistance float64 `yaml:"min_distance" mapstructure:"min_distance"` // pixels
	Factor      float64 `yaml:"factor" mapstructure:"factor"`
}

// PipelineSettings are shared by every job.
type PipelineSettings struct {
	Workers  int           `yaml:"workers" mapstructure:"workers"` // 0 uses one worker per CPU
	Deadline time.Duration `yaml:"deadline" mapstructure:"deadline"`
	User     string        `yaml:"user" mapstructure:"user"` // author recorded on metadata writes
}

// MetricsSettings configure the Prometheus textfile export.
type MetricsSettings struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// SentrySettings configure optional error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// Settings is the immutable configuration passed into every component.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Archive       ArchiveSettings       `yaml:"archive" mapstructure:"archive"`
	RefData       RefDataSettings       `yaml:"refdata" mapstructure:"refdata"`
	Resolver      ResolverSettings      `yaml:"resolver" mapstructure:"resolver"`
	Calibration   CalibrationSettings   `yaml:"calibration" mapstructure:"calibration"`
	Shower        ShowerSettings        `yaml:"shower" mapstructure:"shower"`
	Satellite     SatelliteSettings     `yaml:"satellite" mapstructure:"satellite"`
	Triangulation TriangulationSettings `yaml:"triangulation" mapstructure:"triangulation"`
	Simultaneous  SimultaneousSettings  `yaml:"simultaneous" mapstructure:"simultaneous"`
	FrameDrop     FrameDropSettings     `yaml:"framedrop" mapstructure:"framedrop"`
	Pipeline      PipelineSettings      `yaml:"pipeline" mapstructure:"pipeline"`
	Metrics       MetricsSettings       `yaml:"metrics" mapstructure:"metrics"`
	Logging       logger.LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Sentry        SentrySettings        `yaml:"sentry" mapstructure:"sentry"`
}

// Load reads config.yaml and SKYARCHIVE_* environment variables into Settings.
// An empty configFile searches the default config paths and writes the embedded
// default config there when none exists.
func Load(configFile string) (*Settings, error) {
	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults and environment bindings and reads the config file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// Dump renders the effective settings as YAML with secrets masked.
func Dump(settings *Settings) ([]byte, error) {
	masked := *settings
	if masked.Archive.MySQL.Password != "" {
		masked.Archive.MySQL.Password = "********"
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = "********"
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings: %w", err)
	}
	return data, nil
}
