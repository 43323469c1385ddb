// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	archiveTypes  = []string{"sqlite", "mysql"}
	logLevels     = []string{"trace", "debug", "info", "warn", "error"}
	twilightKinds = []string{"civil", "nautical", "astronomical"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateArchiveSettings,
		validateResolverSettings,
		validateCalibrationSettings,
		validateIdentifierSettings,
		validateTriangulationSettings,
		validateFrameDropSettings,
		validatePipelineSettings,
		validateLoggingSettings,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateArchiveSettings(s *Settings) error {
	var errs []error
	a := &s.Archive

	if !slices.Contains(archiveTypes, a.Type) {
		errs = append(errs, fmt.Errorf("archive.type must be one of %s, got %q", strings.Join(archiveTypes, ", "), a.Type))
	}

	switch a.Type {
	case "sqlite":
		if a.SQLite.Path == "" {
			errs = append(errs, errors.New("archive.sqlite.path is required"))
		}
	case "mysql":
		if a.MySQL.Host == "" || a.MySQL.Database == "" {
			errs = append(errs, errors.New("archive.mysql.host and archive.mysql.database are required"))
		}
	}

	if a.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("archive.retry.max_attempts must be at least 1, got %d", a.Retry.MaxAttempts))
	}
	if a.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("archive.retry.multiplier must be at least 1, got %g", a.Retry.Multiplier))
	}
	if a.Retry.InitialDelay <= 0 || a.Retry.MaxDelay < a.Retry.InitialDelay {
		errs = append(errs, errors.New("archive.retry delays must satisfy 0 < initial_delay <= max_delay"))
	}
	if a.WriteRateLimit < 0 {
		errs = append(errs, fmt.Errorf("archive.write_rate_limit must be non-negative, got %g", a.WriteRateLimit))
	}

	return errors.Join(errs...)
}

func validateResolverSettings(s *Settings) error {
	if s.Resolver.FitQualityThreshold <= 0 {
		return fmt.Errorf("resolver.fit_quality_threshold must be positive, got %g", s.Resolver.FitQualityThreshold)
	}
	if s.Resolver.Window <= 0 {
		return fmt.Errorf("resolver.window must be positive, got %s", s.Resolver.Window)
	}
	return nil
}

func validateCalibrationSettings(s *Settings) error {
	var errs []error
	c := &s.Calibration

	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("calibration.max_iterations must be positive, got %d", c.MaxIterations))
	}
	if c.MinStars < 4 {
		errs = append(errs, fmt.Errorf("calibration.min_stars must be at least 4, got %d", c.MinStars))
	}
	if !slices.Contains(twilightKinds, c.Twilight) {
		errs = append(errs, fmt.Errorf("calibration.twilight must be one of %s, got %q", strings.Join(twilightKinds, ", "), c.Twilight))
	}

	return errors.Join(errs...)
}

func validateIdentifierSettings(s *Settings) error {
	var errs []error

	if s.Shower.Sigma <= 0 {
		errs = append(errs, fmt.Errorf("shower.sigma must be positive, got %g", s.Shower.Sigma))
	}
	if s.Shower.SporadicRate < 0 {
		errs = append(errs, fmt.Errorf("shower.sporadic_rate must be non-negative, got %g", s.Shower.SporadicRate))
	}
	if s.Satellite.EpochWindow <= 0 {
		errs = append(errs, fmt.Errorf("satellite.epoch_window must be positive, got %s", s.Satellite.EpochWindow))
	}
	if s.Satellite.AcceptMismatch <= 0 || s.Satellite.QuickReject < s.Satellite.AcceptMismatch {
		errs = append(errs, errors.New("satellite thresholds must satisfy 0 < accept_mismatch <= quick_reject"))
	}
	if s.Satellite.ClockPriorScale <= 0 {
		errs = append(errs, fmt.Errorf("satellite.clock_prior_scale must be positive, got %g", s.Satellite.ClockPriorScale))
	}

	return errors.Join(errs...)
}

func validateTriangulationSettings(s *Settings) error {
	var errs []error

	if s.Triangulation.MinSightLines < 2 {
		errs = append(errs, fmt.Errorf("triangulation.min_sight_lines must be at least 2, got %d", s.Triangulation.MinSightLines))
	}
	if s.Triangulation.MaxMismatch <= 0 {
		errs = append(errs, fmt.Errorf("triangulation.max_mismatch must be positive, got %g", s.Triangulation.MaxMismatch))
	}
	if s.Simultaneous.MinBaseline < 0 {
		errs = append(errs, fmt.Errorf("simultaneous.min_baseline must be non-negative, got %g", s.Simultaneous.MinBaseline))
	}

	return errors.Join(errs...)
}

func validateFrameDropSettings(s *Settings) error {
	f := &s.FrameDrop
	if f.Window < 1 || f.MinDistance < 0 || f.Factor <= 1 {
		return fmt.Errorf("framedrop settings invalid: window=%d min_distance=%g factor=%g", f.Window, f.MinDistance, f.Factor)
	}
	return nil
}

func validatePipelineSettings(s *Settings) error {
	if s.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be non-negative, got %d", s.Pipeline.Workers)
	}
	if s.Pipeline.Deadline < 0 {
		return fmt.Errorf("pipeline.deadline must be non-negative, got %s", s.Pipeline.Deadline)
	}
	if s.Pipeline.User == "" {
		return errors.New("pipeline.user is required")
	}
	return nil
}

func validateLoggingSettings(s *Settings) error {
	if level := strings.ToLower(s.Logging.DefaultLevel); level != "" && !slices.Contains(logLevels, level) {
		return fmt.Errorf("logging.default_level must be one of %s, got %q", strings.Join(logLevels, ", "), s.Logging.DefaultLevel)
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return errors.New("sentry.dsn is required when sentry is enabled")
	}
	return nil
}
