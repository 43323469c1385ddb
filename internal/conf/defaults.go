// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("archive.type", "sqlite")
	viper.SetDefault("archive.debug", false)
	viper.SetDefault("archive.slow_query_threshold", 250*time.Millisecond)
	viper.SetDefault("archive.file_store", "datadir/files")
	viper.SetDefault("archive.sqlite.path", "datadir/skyarchive.db")
	viper.SetDefault("archive.mysql.host", "localhost")
	viper.SetDefault("archive.mysql.port", "3306")
	viper.SetDefault("archive.mysql.username", "")
	viper.SetDefault("archive.mysql.password", "")
	viper.SetDefault("archive.mysql.database", "skyarchive")
	viper.SetDefault("archive.retry.max_attempts", 5)
	viper.SetDefault("archive.retry.initial_delay", 500*time.Millisecond)
	viper.SetDefault("archive.retry.max_delay", 30*time.Second)
	viper.SetDefault("archive.retry.multiplier", 2.0)
	viper.SetDefault("archive.write_rate_limit", 0.0)
	viper.SetDefault("archive.write_burst", 10)

	viper.SetDefault("refdata.cameras", "configuration_global/camera_properties/cameras.xml")
	viper.SetDefault("refdata.lenses", "configuration_global/camera_properties/lenses.xml")
	viper.SetDefault("refdata.observatories", "configuration_global/known_observatories.xml")
	viper.SetDefault("refdata.showers", "configuration_global/meteor_showers.xml")
	viper.SetDefault("refdata.hipparcos", "configuration_global/hipparcos_catalogue.json")
	viper.SetDefault("refdata.satellites", "configuration_global/satellite_elements.json")

	viper.SetDefault("resolver.fit_quality_threshold", 2.5)
	viper.SetDefault("resolver.window", time.Hour)
	viper.SetDefault("resolver.cache_ttl", 10*time.Minute)

	viper.SetDefault("calibration.max_iterations", 100_000_000)
	viper.SetDefault("calibration.tolerance", 1e-8)
	viper.SetDefault("calibration.min_stars", 6)
	viper.SetDefault("calibration.night_only", true)
	viper.SetDefault("calibration.twilight", "civil")

	viper.SetDefault("shower.sigma", 2.0)
	viper.SetDefault("shower.sporadic_rate", 5.0)
	viper.SetDefault("shower.peak_window_days", 2.0)
	viper.SetDefault("shower.off_peak_zhr", 5.0)

	viper.SetDefault("satellite.epoch_window", 7*24*time.Hour)
	viper.SetDefault("satellite.quick_reject", 10.0)
	viper.SetDefault("satellite.accept_mismatch", 4.0)
	viper.SetDefault("satellite.clock_prior_scale", 30.0)

	viper.SetDefault("triangulation.min_sight_lines", 6)
	viper.SetDefault("triangulation.max_mismatch", 7.0)
	viper.SetDefault("triangulation.tolerance", 1e-7)
	viper.SetDefault("triangulation.max_iterations", 1_000_000)

	viper.SetDefault("simultaneous.min_baseline", 400.0)
	viper.SetDefault("simultaneous.touch_tolerance", 1.0)

	viper.SetDefault("framedrop.window", 4)
	viper.SetDefault("framedrop.min_distance", 16.0)
	viper.SetDefault("framedrop.factor", 4.0)

	viper.SetDefault("pipeline.workers", 0)
	viper.SetDefault("pipeline.deadline", time.Duration(0))
	viper.SetDefault("pipeline.user", "pigazing")

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "UTC")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/skyarchive.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
