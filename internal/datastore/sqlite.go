package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds SQLite manager configuration.
type Config struct {
	// Path of the database file. The directory is created if missing.
	Path               string
	Debug              bool
	SlowQueryThreshold time.Duration
}

// SQLiteManager handles a single-file archive.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the SQLite archive at cfg.Path.
func NewSQLiteManager(cfg Config) (*SQLiteManager, error) {
	if cfg.Path == "" {
		return nil, validationError("sqlite path is empty", "archive.sqlite.path", cfg.Path)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, dbError(err, "create_data_dir", "path", dir)
		}
	}

	// Recommended pragmas: WAL for concurrent readers, a busy timeout so pool
	// workers wait for the writer instead of failing.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg.Debug, cfg.SlowQueryThreshold))
	if err != nil {
		return nil, archiveUnavailable(err, "open_sqlite")
	}

	return &SQLiteManager{db: db, dbPath: cfg.Path}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize() error {
	return migrate(m.db, "sqlite", m.dbPath)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}
