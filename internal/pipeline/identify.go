package pipeline

import (
	"context"

	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/framedrop"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/observability/metrics"
	"github.com/tphakala/skyarchive/internal/satellite"
	"github.com/tphakala/skyarchive/internal/shower"
	"github.com/tphakala/skyarchive/internal/track"
)

// trackQuery selects the moving-object observations of w that carry a pixel
// path. An empty category selects every track.
func trackQuery(w Window, category string) datastore.Query {
	q := datastore.Query{
		ObservatoryID: w.ObservatoryID,
		TimeMin:       w.TimeMin,
		TimeMax:       w.TimeMax,
		Type:          metadata.ObservationTypeMovingObject,
		HasKey:        metadata.KeyPath,
	}
	if !w.All {
		q.Category = category
	}
	return q
}

// prepare flushes the stage's keys when asked and loads the observations q
// selects.
func (r *Runner) prepare(ctx context.Context, w Window, q datastore.Query, namespace string) ([]datastore.Observation, int64, error) {
	var flushed int64
	if w.Flush {
		var err error
		flushed, err = r.flushObservations(ctx, q, metadata.StageKeys(namespace))
		if err != nil {
			return nil, 0, err
		}
		r.log.Info("flushed earlier results",
			logger.String("namespace", namespace),
			logger.Int64("records", flushed))
	}
	obs, err := r.search(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return obs, flushed, nil
}

// IdentifyShowers assigns every meteor track in w to its most likely shower or
// to the sporadic background.
func (r *Runner) IdentifyShowers(ctx context.Context, w Window) (*Report, error) {
	obs, flushed, err := r.prepare(ctx, w, trackQuery(w, metadata.CategoryMeteor), metadata.NamespaceShower)
	if err != nil {
		return nil, err
	}

	ident := shower.NewIdentifier(r.catalogue.Showers, r.settings.Shower)
	projector := track.NewProjector(r.resolver)

	report, err := r.run(ctx, StageShower, w, r.settings.Pipeline.Workers, itemsOf(obs),
		func(ctx context.Context, it item) (itemResult, error) {
			t, err := projector.Project(ctx, it.obs)
			if err != nil {
				return itemResult{}, err
			}
			res, err := ident.Identify(t.Sky, it.utc, t.Pointing.Latitude, t.Pointing.Longitude)
			if err != nil {
				return itemResult{}, err
			}
			path, err := t.PathRaDec()
			if err != nil {
				return itemResult{}, err
			}

			best := res.Best()
			values := map[string]metadata.Value{
				metadata.KeyShowerName:       metadata.String(best.Name),
				metadata.KeyShowerLikelihood: metadata.Float(best.Likelihood),
				metadata.KeyShowerPathLength: metadata.Float(t.PathLength()),
				metadata.KeyShowerPathRaDec:  path,
			}
			if !best.IsSporadic() {
				values[metadata.KeyShowerRadiantOffset] = metadata.Float(best.RadiantOffset)
			}
			return itemResult{
				outcome: metrics.OutcomeSucceeded,
				rescued: t.Rescued(),
				commit:  r.setObservation(it.id, values),
			}, nil
		})
	if report != nil {
		report.Flushed = flushed
	}
	return report, err
}

// IdentifySatellites matches every satellite track in w against the element
// sets valid at its time.
func (r *Runner) IdentifySatellites(ctx context.Context, w Window) (*Report, error) {
	obs, flushed, err := r.prepare(ctx, w, trackQuery(w, metadata.CategorySatellite), metadata.NamespaceSatellite)
	if err != nil {
		return nil, err
	}

	ident := satellite.NewIdentifier(r.settings.Satellite)
	projector := track.NewProjector(r.resolver)

	report, err := r.run(ctx, StageSatellite, w, r.settings.Pipeline.Workers, itemsOf(obs),
		func(ctx context.Context, it item) (itemResult, error) {
			t, err := projector.Project(ctx, it.obs)
			if err != nil {
				return itemResult{}, err
			}

			var candidates []*datastore.SatelliteElements
			err = r.withRetry(ctx, "satellite_candidates", func() error {
				var err error
				candidates, err = r.archive.SatelliteCandidates(ctx, it.utc, r.settings.Satellite.EpochWindow)
				return err
			})
			if err != nil {
				return itemResult{}, err
			}

			res, err := ident.Identify(t, candidates)
			if err != nil {
				return itemResult{}, err
			}
			path, err := t.PathRaDec()
			if err != nil {
				return itemResult{}, err
			}

			best := res.Best()
			values := map[string]metadata.Value{
				metadata.KeySatelliteName:       metadata.String(best.Name),
				metadata.KeySatellitePathLength: metadata.Float(t.PathLength()),
				metadata.KeySatellitePathRaDec:  path,
			}
			if best.IsUnidentified() {
				r.log.Debug("no satellite matched",
					logger.String("observation_id", it.id),
					logger.Int("candidates", res.Evaluated),
					logger.String("category", string(errors.CategoryNoCandidates)))
			} else {
				values[metadata.KeySatelliteNoradID] = metadata.Float(float64(best.NoradID))
				values[metadata.KeySatelliteClockOffset] = metadata.Float(best.ClockOffset)
				values[metadata.KeySatelliteAngularOffset] = metadata.Float(best.AngularOffset)
			}
			return itemResult{
				outcome: metrics.OutcomeSucceeded,
				rescued: t.Rescued(),
				commit:  r.setObservation(it.id, values),
			}, nil
		})
	if report != nil {
		report.Flushed = flushed
	}
	return report, err
}

// DetectFrameDrops records where the capture of every track in w skipped
// frames. Every track is examined whatever its category.
func (r *Runner) DetectFrameDrops(ctx context.Context, w Window) (*Report, error) {
	w.All = true
	obs, flushed, err := r.prepare(ctx, w, trackQuery(w, ""), metadata.NamespaceFrameDrop)
	if err != nil {
		return nil, err
	}

	detector := framedrop.NewDetector(r.settings.FrameDrop)

	report, err := r.run(ctx, StageFrameDrop, w, r.settings.Pipeline.Workers, itemsOf(obs),
		func(_ context.Context, it item) (itemResult, error) {
			pathJSON, _ := it.obs.Metadata.String(metadata.KeyPath)
			bezierJSON, _ := it.obs.Metadata.String(metadata.KeyPathBezier)
			samples, notes, err := track.ParsePath(pathJSON, bezierJSON)
			if err != nil {
				return itemResult{}, err
			}

			drops := detector.Detect(samples, it.utc)
			v, err := framedrop.Value(drops)
			if err != nil {
				return itemResult{}, err
			}
			return itemResult{
				outcome: metrics.OutcomeSucceeded,
				rescued: len(notes) > 0,
				commit:  r.setObservation(it.id, map[string]metadata.Value{metadata.KeyFrameDropList: v}),
			}, nil
		})
	if report != nil {
		report.Flushed = flushed
	}
	return report, err
}
