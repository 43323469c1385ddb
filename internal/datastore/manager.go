// Package datastore is the observation archive: connection management for SQLite
// and MySQL, and the Archive facade the pipeline reads from and writes results to.
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore/entities"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
)

// Manager owns one database connection.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location for display; never contains credentials.
	Path() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// NewManager opens the archive backend selected by settings.Type.
func NewManager(settings *conf.ArchiveSettings) (Manager, error) {
	switch settings.Type {
	case "mysql":
		return NewMySQLManager(&MySQLConfig{
			Host:               settings.MySQL.Host,
			Port:               settings.MySQL.Port,
			Username:           settings.MySQL.Username,
			Password:           settings.MySQL.Password,
			Database:           settings.MySQL.Database,
			Debug:              settings.Debug,
			SlowQueryThreshold: settings.SlowQueryThreshold,
		})
	case "sqlite", "":
		return NewSQLiteManager(Config{
			Path:               settings.SQLite.Path,
			Debug:              settings.Debug,
			SlowQueryThreshold: settings.SlowQueryThreshold,
		})
	default:
		return nil, errors.Newf("unsupported archive type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// gormConfig routes GORM logging through the datastore module logger.
func gormConfig(debug bool, slow time.Duration) *gorm.Config {
	adapter := logger.NewGormAdapter(GetLogger(), slow)
	if debug {
		adapter = adapter.Verbose()
	}
	return &gorm.Config{Logger: adapter}
}

// migrate runs AutoMigrate for every archive table.
func migrate(db *gorm.DB, dbType, location string) error {
	start := time.Now()
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}
	GetLogger().Info("archive schema ready",
		logger.String("db_type", dbType),
		logger.String("location", location),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
