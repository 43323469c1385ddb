// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/skyarchive/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the config search paths for the current operating system.
// If config.yaml already exists in one of them, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{filepath.Join(homeDir, "AppData", "Roaming", "skyarchive")}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "skyarchive"),
			"/etc/skyarchive",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}
