// Package conf provides configuration management for skyarchive.
package conf

import "github.com/tphakala/skyarchive/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched on every call so it follows logger.SetGlobal made after init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
