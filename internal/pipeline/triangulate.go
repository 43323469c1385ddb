package pipeline

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/observability/metrics"
	"github.com/tphakala/skyarchive/internal/simultaneous"
	"github.com/tphakala/skyarchive/internal/track"
	"github.com/tphakala/skyarchive/internal/triangulation"
)

// Triangulate finds moving objects seen from more than one observatory at once
// in w, records each set as an observation group and fits a trajectory to it.
// Groups and triangulation results already in the window are replaced.
func (r *Runner) Triangulate(ctx context.Context, w Window) (*Report, error) {
	q := trackQuery(Window{ObservatoryID: w.ObservatoryID, TimeMin: w.TimeMin, TimeMax: w.TimeMax, All: true}, "")
	obs, err := r.search(ctx, q)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*datastore.Observation, len(obs))
	intervals := make([]simultaneous.Interval, len(obs))
	for i := range obs {
		o := &obs[i]
		byID[o.PublicID] = o
		duration, _ := o.Metadata.Float(metadata.KeyDuration)
		intervals[i] = simultaneous.Interval{
			ObservationID: o.PublicID,
			ObservatoryID: o.ObservatoryID,
			Start:         o.Time,
			End:           o.Time + duration,
		}
	}

	locations, err := r.locations(ctx)
	if err != nil {
		return nil, err
	}
	groups := simultaneous.NewClusterer(locations, r.settings.Simultaneous).Cluster(intervals)

	flushed, err := r.clearTriangulations(ctx, w, q)
	if err != nil {
		return nil, err
	}

	items := make([]item, len(groups))
	for i := range groups {
		g := &groups[i]
		items[i] = item{id: uuid.NewString(), utc: g.Start, group: g}
	}

	tri := triangulation.NewTriangulator(r.settings.Triangulation)
	projector := track.NewProjector(r.resolver)

	report, err := r.run(ctx, StageTriangulate, w, r.settings.Pipeline.Workers, items,
		func(ctx context.Context, it item) (itemResult, error) {
			stations, rescued := r.stations(ctx, projector, it.group, byID)

			sol, cause := tri.Triangulate(stations)
			if cause != nil && sol == nil {
				return itemResult{}, cause
			}
			commit, err := r.groupCommit(it, sol)
			if err != nil {
				return itemResult{}, err
			}

			outcome := metrics.OutcomeSucceeded
			switch sol.Status {
			case triangulation.StatusInsufficientLines:
				outcome = metrics.OutcomeSkipped
			case triangulation.StatusHighMismatch:
				outcome = metrics.OutcomeRejected
			case triangulation.StatusFitAttempted, triangulation.StatusPending:
				outcome = metrics.OutcomeFailed
			}
			if cause == nil {
				r.log.Info("trajectory fitted",
					logger.String("group_id", it.id),
					logger.Int("members", len(it.group.Members)),
					logger.Float64("speed_ms", sol.GeocentreSpeed),
					logger.Float64("mean_altitude_m", sol.MeanAltitude))
			}
			return itemResult{outcome: outcome, rescued: rescued, commit: commit, cause: cause}, nil
		})
	if report != nil {
		report.Flushed = flushed
	}
	return report, err
}

// locations maps every observatory to its position for the baseline filter.
func (r *Runner) locations(ctx context.Context) (map[string]simultaneous.Location, error) {
	var all []datastore.Observatory
	err := r.withRetry(ctx, "list_observatories", func() error {
		var err error
		all, err = r.archive.ListObservatories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]simultaneous.Location, len(all))
	for _, o := range all {
		out[o.PublicID] = simultaneous.Location{Latitude: o.Latitude, Longitude: o.Longitude, Altitude: o.Altitude}
	}
	return out, nil
}

// clearTriangulations deletes the window's groups and the triangulation keys
// of its observations before new groups are written.
func (r *Runner) clearTriangulations(ctx context.Context, w Window, q datastore.Query) (int64, error) {
	var groups int64
	err := r.withRetry(ctx, "delete_groups", func() error {
		var err error
		groups, err = r.archive.DeleteGroupsInWindow(ctx, metadata.SemanticTypeSimultaneous, w.TimeMin, w.TimeMax)
		return err
	})
	if err != nil {
		return 0, err
	}
	keys, err := r.flushObservations(ctx, q, metadata.StageKeys(metadata.NamespaceTriangulation))
	if err != nil {
		return groups, err
	}
	r.log.Debug("cleared earlier triangulations",
		logger.Int64("groups", groups),
		logger.Int64("records", keys))
	return groups + keys, nil
}

// stations projects every member of g. A member that cannot be projected is
// left out; the triangulator decides whether the rest suffice.
func (r *Runner) stations(ctx context.Context, projector *track.Projector, g *simultaneous.Group,
	byID map[string]*datastore.Observation,
) ([]triangulation.Station, bool) {
	var out []triangulation.Station
	var rescued bool
	for _, m := range g.Members {
		o, ok := byID[m.ObservationID]
		if !ok {
			continue
		}
		t, err := projector.Project(ctx, o)
		if err != nil {
			r.log.Debug("member left out of triangulation",
				logger.String("observation_id", m.ObservationID),
				logger.String("obstory_id", m.ObservatoryID),
				logger.String("category", string(errors.CategoryOf(err))),
				logger.Error(err))
			continue
		}
		rescued = rescued || t.Rescued()
		out = append(out, triangulation.Station{
			ObservationID: o.PublicID,
			ObservatoryID: o.ObservatoryID,
			SightLines:    t.SightLines,
		})
	}
	return out, rescued
}

// groupCommit creates the group with its state and, for an accepted fit, the
// per-member samples.
func (r *Runner) groupCommit(it item, sol *triangulation.Solution) (commitFunc, error) {
	groupValues, err := sol.GroupMetadata()
	if err != nil {
		return nil, err
	}
	memberValues := map[string]map[string]metadata.Value{}
	if sol.Status == triangulation.StatusAccepted {
		for _, id := range it.group.MemberIDs() {
			values, ok, err := sol.ObservationMetadata(id)
			if err != nil {
				return nil, err
			}
			if ok {
				memberValues[id] = values
			}
		}
	}

	return func(ctx context.Context, tx *datastore.Archive) error {
		now := r.unixNow()
		user := r.settings.Pipeline.User
		err := tx.CreateGroup(ctx, datastore.Group{
			PublicID:     it.id,
			SemanticType: metadata.SemanticTypeSimultaneous,
			Time:         it.group.Start,
			Members:      it.group.MemberIDs(),
		}, user, now)
		if err != nil {
			return err
		}
		for _, key := range slices.Sorted(maps.Keys(groupValues)) {
			if err := tx.SetGroupMetadata(ctx, it.id, key, groupValues[key], user, now); err != nil {
				return err
			}
		}
		for _, id := range slices.Sorted(maps.Keys(memberValues)) {
			if err := r.setObservation(id, memberValues[id])(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	}, nil
}
