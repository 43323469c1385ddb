package datastore

import (
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const mysqlDialTimeout = "10s"

// MySQLConfig holds MySQL manager configuration.
type MySQLConfig struct {
	Host               string
	Port               string
	Username           string
	Password           string
	Database           string
	Debug              bool
	SlowQueryThreshold time.Duration
}

// MySQLManager handles a shared archive on a MySQL server.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// DSN renders the connection string, escaping credentials.
func (c *MySQLConfig) DSN() string {
	dc := mysql.Config{
		User:   c.Username,
		Passwd: c.Password,
		Net:    "tcp",
		Addr:   net.JoinHostPort(c.Host, c.Port),
		DBName: c.Database,
		Params: map[string]string{
			"charset":      "utf8mb4",
			"parseTime":    "True",
			"loc":          "UTC",
			"timeout":      mysqlDialTimeout,
			"readTimeout":  mysqlDialTimeout,
			"writeTimeout": mysqlDialTimeout,
		},
	}
	return dc.FormatDSN()
}

// NewMySQLManager connects to the server and configures the pool.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	location := fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), gormConfig(cfg.Debug, cfg.SlowQueryThreshold))
	if err != nil {
		return nil, archiveUnavailable(err, "open_mysql", "location", location)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize creates the schema.
func (m *MySQLManager) Initialize() error {
	return migrate(m.db, "mysql", m.location)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}
