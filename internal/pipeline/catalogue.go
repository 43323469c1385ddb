package pipeline

import (
	"context"
	"time"

	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/refdata"
)

// ImportObservatories registers every observatory listed in path and records
// its camera and lens as metadata valid from utc. Observatories already in the
// archive keep their history; only name, position and owner are updated.
func (r *Runner) ImportObservatories(ctx context.Context, path string, utc float64) (int, error) {
	known, err := refdata.LoadFile(path, refdata.ParseObservatories)
	if err != nil {
		return 0, err
	}

	user := r.settings.Pipeline.User
	imported := 0
	for _, k := range known {
		err := r.withRetry(ctx, "import_observatory", func() error {
			return r.archive.Transaction(ctx, func(tx *datastore.Archive) error {
				if err := tx.UpsertObservatory(ctx, datastore.Observatory{
					PublicID:  k.ID,
					Name:      k.Name,
					Latitude:  k.Latitude,
					Longitude: k.Longitude,
					Altitude:  k.Altitude,
					Owner:     k.Owner,
				}); err != nil {
					return err
				}
				if k.Camera != "" {
					if err := tx.SetObservatoryMetadata(ctx, k.ID, metadata.KeyCamera, metadata.String(k.Camera), user, utc); err != nil {
						return err
					}
				}
				if k.Lens != "" {
					if err := tx.SetObservatoryMetadata(ctx, k.ID, metadata.KeyLens, metadata.String(k.Lens), user, utc); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return imported, err
		}
		imported++

		if r.catalogue != nil {
			if _, ok := r.catalogue.Cameras[k.Camera]; k.Camera != "" && !ok {
				r.log.Warn("observatory uses an unknown camera model",
					logger.String("obstory_id", k.ID),
					logger.String("camera", k.Camera))
			}
			if _, ok := r.catalogue.Lenses[k.Lens]; k.Lens != "" && !ok {
				r.log.Warn("observatory uses an unknown lens model",
					logger.String("obstory_id", k.ID),
					logger.String("lens", k.Lens))
			}
		}
	}

	r.log.Info("observatories imported",
		logger.String("path", path),
		logger.Int("observatories", imported))
	return imported, nil
}

// ImportSatellites loads the element catalogue at path into the archive.
// Rows already present for the same object and epoch are replaced.
func (r *Runner) ImportSatellites(ctx context.Context, path string) (int, error) {
	start := time.Now()
	rows, err := refdata.LoadFile(path, refdata.ParseSatellites)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.Newf("satellite catalogue %s has no element sets", path).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	var n int
	err = r.withRetry(ctx, "import_satellites", func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		n, err = r.archive.ImportSatellites(ctx, rows)
		return err
	})
	if err != nil {
		return 0, err
	}

	r.log.Info("satellite elements imported",
		logger.String("path", path),
		logger.Int("rows", n),
		logger.Duration("elapsed", time.Since(start)))
	return n, nil
}
