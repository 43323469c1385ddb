// Package app holds the state a command needs: settings, logging, the archive
// connection, reference data and the metrics registry.
package app

import (
	"context"
	"time"

	"github.com/tphakala/skyarchive/internal/buildinfo"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/observability"
	"github.com/tphakala/skyarchive/internal/pipeline"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/telemetry"
)

// Context holds the overall application state for one command invocation.
type Context struct {
	ConfigFile string
	Debug      bool
	Build      *buildinfo.Context

	Settings  *conf.Settings
	Archive   *datastore.Archive
	Catalogue *refdata.Catalogue
	Metrics   *observability.Metrics

	manager datastore.Manager
	central *logger.CentralLogger
}

// NewContext returns an empty Context for the given build.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// LoadSettings reads the configuration and starts logging and telemetry.
func (c *Context) LoadSettings() error {
	settings, err := conf.Load(c.ConfigFile)
	if err != nil {
		return configError(err, "load_settings")
	}
	if c.Debug {
		settings.Debug = true
		settings.Logging.DefaultLevel = "debug"
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return configError(err, "setup_logging")
	}
	logger.SetGlobal(central)
	c.central = central

	if err := telemetry.InitSentry(settings, c.Build.GetVersion()); err != nil {
		return err
	}

	c.Settings = settings
	return nil
}

// Open connects to the archive and loads reference data. LoadSettings must
// have succeeded first.
func (c *Context) Open(ctx context.Context) error {
	if c.Settings == nil {
		return errors.Newf("settings not loaded").
			Component("app").
			Category(errors.CategoryState).
			Build()
	}

	manager, err := datastore.NewManager(&c.Settings.Archive)
	if err != nil {
		return archiveError(err, "open_archive")
	}
	c.manager = manager
	if err := manager.Initialize(); err != nil {
		return archiveError(err, "initialize_archive")
	}
	c.Archive = datastore.NewArchive(manager.DB())
	if err := c.Archive.Ping(ctx); err != nil {
		return archiveError(err, "ping_archive")
	}

	cat, err := refdata.Load(&c.Settings.RefData)
	if err != nil {
		return configError(err, "load_refdata")
	}
	c.Catalogue = cat

	m, err := observability.NewMetrics()
	if err != nil {
		return configError(err, "create_metrics")
	}
	c.Metrics = m

	GetLogger().Debug("archive open",
		logger.String("location", manager.Path()),
		logger.Bool("mysql", manager.IsMySQL()))
	return nil
}

// Runner returns a pipeline runner reporting to the metrics registry.
func (c *Context) Runner() *pipeline.Runner {
	var opts []pipeline.Option
	if c.Metrics != nil {
		opts = append(opts, pipeline.WithRecorder(c.Metrics.Pipeline))
	}
	return pipeline.NewRunner(c.Settings, c.Archive, c.Catalogue, opts...)
}

// Close writes the metrics textfile and releases everything Open and
// LoadSettings acquired. It returns the first error.
func (c *Context) Close() error {
	var first error
	if c.Metrics != nil && c.Settings != nil {
		if err := c.Metrics.WriteTextfile(c.Settings.Metrics.Textfile); err != nil {
			GetLogger().Warn("metrics textfile not written", logger.Error(err))
			first = err
		}
	}
	if c.manager != nil {
		if err := c.manager.Close(); err != nil && first == nil {
			first = err
		}
		c.manager = nil
	}
	telemetry.Flush(2 * time.Second)
	if c.central != nil {
		if err := c.central.Close(); err != nil && first == nil {
			first = err
		}
		c.central = nil
	}
	return first
}

// configError keeps an existing category and marks everything else as a
// configuration failure.
func configError(err error, operation string) error {
	if errors.CategoryOf(err) != errors.CategoryGeneric {
		return err
	}
	return errors.New(err).
		Component("app").
		Category(errors.CategoryConfiguration).
		Context("operation", operation).
		Build()
}

func archiveError(err error, operation string) error {
	switch errors.CategoryOf(err) {
	case errors.CategoryGeneric, errors.CategoryDatabase:
		return errors.ArchiveError(err, operation)
	}
	return err
}
