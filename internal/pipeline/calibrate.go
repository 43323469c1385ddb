package pipeline

import (
	"cmp"
	"context"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/calibration"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/observability/metrics"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/suncalc"
)

const deg = math.Pi / 180

// dailyKeys are the observatory keys a calibration run writes per night.
var dailyKeys = []string{
	metadata.KeyOrientationAltitude, metadata.KeyOrientationAzimuth, metadata.KeyOrientationTilt,
	metadata.KeyOrientationRoll, metadata.KeyOrientationAngWidth, metadata.KeyOrientationAngHeight,
	metadata.KeyOrientationUncertainty, metadata.KeyOrientationFitToDaily, metadata.KeyOrientationImageCount,
	metadata.KeyCalibrationBarrel, metadata.KeyCalibrationChiSquared, metadata.KeyCalibrationPointCount,
}

// site is what the calibrator needs to know about one observatory.
type site struct {
	obstory *datastore.Observatory
	night   *suncalc.SunCalc
}

// nightFit is one accepted per-image fit, kept for the daily averages.
type nightFit struct {
	observatoryID string
	night         float64
	orientation   calibration.Orientation
}

// Calibrate fits the lens and pointing of every star-annotated timelapse image
// in w, writes each fit back onto its image and then writes one averaged
// orientation per observatory per night. Images are processed one at a time
// in time order so the observatory history grows monotonically.
func (r *Runner) Calibrate(ctx context.Context, w Window) (*Report, error) {
	stars, err := refdata.LoadFile(r.settings.RefData.Hipparcos, refdata.ParseHipparcos)
	if err != nil {
		return nil, err
	}

	q := datastore.Query{
		ObservatoryID: w.ObservatoryID,
		TimeMin:       w.TimeMin,
		TimeMax:       w.TimeMax,
		Type:          metadata.ObservationTypeTimelapse,
		HasKey:        metadata.KeyCalibrationStarList,
	}

	var flushed int64
	if w.Flush {
		if flushed, err = r.flushCalibration(ctx, w, q); err != nil {
			return nil, err
		}
	}

	obs, err := r.search(ctx, q)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(obs, func(a, b datastore.Observation) int { return cmp.Compare(a.Time, b.Time) })

	var (
		mu    sync.Mutex
		sites = map[string]*site{}
		fits  []nightFit
	)
	threshold := r.qualityThreshold()

	report, err := r.run(ctx, StageCalibrate, w, 1, itemsOf(obs),
		func(ctx context.Context, it item) (itemResult, error) {
			mu.Lock()
			s, err := r.site(ctx, sites, it.observatoryID)
			mu.Unlock()
			if err != nil {
				return itemResult{}, err
			}
			if s.night != nil && !s.night.IsDark(it.utc) {
				return itemResult{outcome: metrics.OutcomeSkipped}, nil
			}

			sol, err := r.fitImage(ctx, it, stars)
			if err != nil {
				return itemResult{}, err
			}

			o := calibration.OrientationAt(sol, it.utc, s.obstory.Latitude, s.obstory.Longitude)
			values, err := imageValues(sol, o)
			if err != nil {
				return itemResult{}, err
			}

			good := o.FitQuality < threshold
			if good {
				mu.Lock()
				fits = append(fits, nightFit{
					observatoryID: it.observatoryID,
					night:         calibration.NightStart(it.utc, s.obstory.Longitude),
					orientation:   o,
				})
				mu.Unlock()
			}

			commit := r.setObservation(it.id, values)
			if good {
				commit = r.withLensFit(commit, it, sol)
			}
			r.log.Debug("image calibrated",
				logger.String("observation_id", it.id),
				logger.Float64("fit_quality", o.FitQuality),
				logger.Int("stars", sol.PointCount))
			return itemResult{outcome: metrics.OutcomeSucceeded, commit: commit}, nil
		})
	if report != nil {
		report.Flushed = flushed
	}
	if err != nil {
		return report, err
	}

	if err := r.writeDailyAverages(ctx, fits, threshold); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) qualityThreshold() float64 {
	if t := r.settings.Resolver.FitQualityThreshold; t > 0 {
		return t
	}
	return 2.5
}

// site loads an observatory once per run, with its night calculator when
// calibration is restricted to darkness. Callers hold the lock on sites.
func (r *Runner) site(ctx context.Context, sites map[string]*site, id string) (*site, error) {
	if s, ok := sites[id]; ok {
		return s, nil
	}
	var o *datastore.Observatory
	err := r.withRetry(ctx, "get_observatory", func() error {
		var err error
		o, err = r.archive.GetObservatory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s := &site{obstory: o}
	if r.settings.Calibration.NightOnly {
		twilight := r.settings.Calibration.Twilight
		if twilight == "" {
			twilight = "civil"
		}
		if s.night, err = suncalc.NewSunCalc(o.Latitude, o.Longitude, twilight); err != nil {
			return nil, err
		}
	}
	sites[id] = s
	return s, nil
}

// fitImage solves one image. The observatory's last daily average, when there
// is one, seeds the field centre.
func (r *Runner) fitImage(ctx context.Context, it item, cat map[int]refdata.Star) (*calibration.Solution, error) {
	list, _ := it.obs.Metadata.String(metadata.KeyCalibrationStarList)
	stars, err := calibration.ParseStarListString(list, cat, it.utc)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryValidation).
			ObservationContext(it.id, it.observatoryID).
			Build()
	}

	width, height, err := r.resolver.PixelGrid(ctx, it.observatoryID, it.utc)
	if err != nil {
		return nil, err
	}

	opts := calibration.Options{
		MinStars:      r.settings.Calibration.MinStars,
		MaxIterations: r.settings.Calibration.MaxIterations,
		Tolerance:     r.settings.Calibration.Tolerance,
	}
	if p, err := r.resolver.Resolve(ctx, it.observatoryID, it.utc, true); err == nil && p.AngWidth > 0 && p.AngHeight > 0 {
		cam := p.CameraAt(it.utc)
		opts.Guess = &calibration.Solution{
			RA:     projection.WrapRA(cam.RA) / deg / 15,
			Dec:    cam.Dec / deg,
			FovX:   p.AngWidth,
			FovY:   p.AngHeight,
			PosAng: cam.PosAng / deg,
			K:      p.Distortion,
		}
	}

	sol, err := calibration.Fit(stars, float64(width), float64(height), opts)
	if err != nil {
		return nil, err
	}
	return sol, nil
}

// imageValues is the per-image write-back the resolver's per-image search
// reads.
func imageValues(sol *calibration.Solution, o calibration.Orientation) (map[string]metadata.Value, error) {
	values := map[string]metadata.Value{
		metadata.KeyOrientationAltitude:   metadata.Float(o.Altitude),
		metadata.KeyOrientationAzimuth:    metadata.Float(o.Azimuth),
		metadata.KeyOrientationTilt:       metadata.Float(o.Tilt),
		metadata.KeyOrientationRoll:       metadata.Float(o.Roll),
		metadata.KeyOrientationRA:         metadata.Float(o.RA),
		metadata.KeyOrientationDec:        metadata.Float(o.Dec),
		metadata.KeyOrientationAngWidth:   metadata.Float(o.AngWidth),
		metadata.KeyOrientationAngHeight:  metadata.Float(o.AngHeight),
		metadata.KeyOrientationFitQuality: metadata.Float(o.FitQuality),
		metadata.KeyCalibrationChiSquared: metadata.Float(sol.ChiSquared),
		metadata.KeyCalibrationPointCount: metadata.Float(float64(sol.PointCount)),
	}

	params, err := metadata.JSON(sol.Params())
	if err != nil {
		return nil, err
	}
	values[metadata.KeyCalibrationBarrel] = params

	residuals := make([][3]float64, len(sol.Residuals))
	for i, res := range sol.Residuals {
		residuals[i] = [3]float64{float64(res.HIP), res.DX, res.DY}
	}
	if values[metadata.KeyCalibrationResidualList], err = metadata.JSON(residuals); err != nil {
		return nil, err
	}
	return values, nil
}

// withLensFit extends commit to record a good fit's lens parameters on the
// observatory, timestamped to the image.
func (r *Runner) withLensFit(commit commitFunc, it item, sol *calibration.Solution) commitFunc {
	return func(ctx context.Context, tx *datastore.Archive) error {
		if err := commit(ctx, tx); err != nil {
			return err
		}
		params, err := metadata.JSON(sol.Params())
		if err != nil {
			return err
		}
		user := r.settings.Pipeline.User
		for _, kv := range []struct {
			key   string
			value metadata.Value
		}{
			{metadata.KeyCalibrationBarrel, params},
			{metadata.KeyCalibrationChiSquared, metadata.Float(sol.ChiSquared)},
			{metadata.KeyCalibrationPointCount, metadata.Float(float64(sol.PointCount))},
		} {
			if err := tx.SetObservatoryMetadata(ctx, it.observatoryID, kv.key, kv.value, user, it.utc); err != nil {
				return err
			}
		}
		return nil
	}
}

type nightKey struct {
	observatoryID string
	night         float64
}

// writeDailyAverages writes one averaged orientation per observatory and
// night, in time order, each night in its own transaction.
func (r *Runner) writeDailyAverages(ctx context.Context, fits []nightFit, threshold float64) error {
	byNight := map[nightKey][]calibration.Orientation{}
	for _, f := range fits {
		k := nightKey{f.observatoryID, f.night}
		byNight[k] = append(byNight[k], f.orientation)
	}

	keys := slices.SortedFunc(maps.Keys(byNight), func(a, b nightKey) int {
		return cmp.Or(cmp.Compare(a.night, b.night), cmp.Compare(a.observatoryID, b.observatoryID))
	})
	user := r.settings.Pipeline.User
	for _, k := range keys {
		avg, ok := calibration.DailyAverage(byNight[k], threshold)
		if !ok {
			continue
		}
		values := map[string]metadata.Value{
			metadata.KeyOrientationAltitude:    metadata.Float(avg.Altitude),
			metadata.KeyOrientationAzimuth:     metadata.Float(avg.Azimuth),
			metadata.KeyOrientationTilt:        metadata.Float(avg.Tilt),
			metadata.KeyOrientationRoll:        metadata.Float(avg.Roll),
			metadata.KeyOrientationAngWidth:    metadata.Float(avg.AngWidth),
			metadata.KeyOrientationAngHeight:   metadata.Float(avg.AngHeight),
			metadata.KeyOrientationUncertainty: metadata.Float(avg.Uncertainty),
			metadata.KeyOrientationFitToDaily:  metadata.Float(avg.FitQuality),
			metadata.KeyOrientationImageCount:  metadata.Float(float64(avg.ImageCount)),
		}
		err := r.withRetry(ctx, "daily_average", func() error {
			return r.archive.Transaction(ctx, func(tx *datastore.Archive) error {
				for _, key := range slices.Sorted(maps.Keys(values)) {
					if err := tx.SetObservatoryMetadata(ctx, k.observatoryID, key, values[key], user, k.night); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return err
		}
		r.log.Info("daily orientation written",
			logger.String("obstory_id", k.observatoryID),
			logger.Float64("night", k.night),
			logger.Int("images", avg.ImageCount),
			logger.Float64("uncertainty_deg", avg.Uncertainty))
	}
	return nil
}

// flushCalibration removes per-image fits in the window and the observatory
// records the calibrator wrote for the nights it covers.
func (r *Runner) flushCalibration(ctx context.Context, w Window, q datastore.Query) (int64, error) {
	n, err := r.flushObservations(ctx, q, metadata.StageKeys(metadata.NamespaceOrientation))
	if err != nil {
		return 0, err
	}

	var ids []string
	if w.ObservatoryID != "" {
		ids = []string{w.ObservatoryID}
	} else {
		var all []datastore.Observatory
		err := r.withRetry(ctx, "list_observatories", func() error {
			var err error
			all, err = r.archive.ListObservatories(ctx)
			return err
		})
		if err != nil {
			return n, err
		}
		for _, o := range all {
			ids = append(ids, o.PublicID)
		}
	}

	for _, id := range ids {
		err := r.withRetry(ctx, "flush_observatory", func() error {
			o, err := r.archive.GetObservatory(ctx, id)
			if err != nil {
				return err
			}
			from := calibration.NightStart(w.TimeMin, o.Longitude)
			deleted, err := r.archive.DeleteObservatoryMetadata(ctx, id, dailyKeys, from, w.TimeMax)
			n += deleted
			return err
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
