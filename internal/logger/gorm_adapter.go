package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging through a module Logger.
// Statements go out at TRACE so they only show with module_levels.datastore: trace.
//
//	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
//	    Logger: logger.NewGormAdapter(central.Module("datastore"), 250*time.Millisecond),
//	})
type GormAdapter struct {
	log           Logger
	slowThreshold time.Duration
	verbose       bool
}

// NewGormAdapter creates the adapter. A zero slowThreshold disables slow-statement warnings.
func NewGormAdapter(log Logger, slowThreshold time.Duration) *GormAdapter {
	if log == nil {
		log = Global().Module("datastore")
	}
	return &GormAdapter{log: log, slowThreshold: slowThreshold}
}

// Verbose raises executed statements from TRACE to DEBUG.
func (a *GormAdapter) Verbose() *GormAdapter {
	cp := *a
	cp.verbose = true
	return &cp
}

// LogMode is ignored; levels come from the logging configuration.
func (a *GormAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. Failures other than record-not-found and
// statements slower than the threshold are raised to WARN.
func (a *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := a.log.WithContext(ctx).With(
		String("sql", sql),
		Int64("rows", rows),
		Duration("elapsed", elapsed))

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("statement failed", Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		log.Warn("slow statement", Duration("threshold", a.slowThreshold))
	case a.verbose:
		log.Debug("statement")
	default:
		log.Trace("statement")
	}
}
