// Package refdata loads the read-only reference files: camera and lens models,
// known observatories, the meteor shower working list, the bright-star subset of
// the Hipparcos catalogue and tabulated satellite elements.
//
// Camera, lens and shower lists ship embedded; a configured path that does not
// exist falls back to the embedded copy with the same base name.
package refdata

import (
	"embed"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
)

//go:embed data/*.xml
var embedded embed.FS

// GetLogger returns the refdata module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("refdata")
}

// Catalogue bundles the reference data a pipeline run needs.
type Catalogue struct {
	Cameras map[string]CameraModel
	Lenses  map[string]LensModel
	Showers []Shower
}

// Load reads cameras, lenses and showers named by settings.
func Load(settings *conf.RefDataSettings) (*Catalogue, error) {
	cameras, err := loadWith(settings.Cameras, ParseCameras)
	if err != nil {
		return nil, err
	}
	lenses, err := loadWith(settings.Lenses, ParseLenses)
	if err != nil {
		return nil, err
	}
	showers, err := loadWith(settings.Showers, ParseShowers)
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("reference data loaded",
		logger.Int("cameras", len(cameras)),
		logger.Int("lenses", len(lenses)),
		logger.Int("showers", len(showers)))

	return &Catalogue{Cameras: cameras, Lenses: lenses, Showers: showers}, nil
}

// LoadFile opens path (with embedded fallback) and parses it.
func LoadFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	return loadWith(path, parse)
}

func loadWith[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	rc, err := open(path)
	if err != nil {
		return zero, err
	}
	defer func() { _ = rc.Close() }()

	out, err := parse(rc)
	if err != nil {
		return zero, errors.New(err).
			Component("refdata").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	return out, nil
}

// open returns the file at path, or the embedded file with the same base name.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fileError(err, path)
	}

	ef, embErr := embedded.Open("data/" + filepath.Base(path))
	if embErr != nil {
		return nil, fileError(err, path)
	}
	GetLogger().Debug("using embedded reference data", logger.String("path", path))
	return ef, nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("refdata").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
