// Package pipeline runs the archive jobs: calibration, shower and satellite
// identification, frame-drop detection and simultaneous-detection
// triangulation.
//
// A job selects observations in a time window, computes a result for each and
// commits every observation's metadata in its own transaction. Per-observation
// failures are tallied and never stop a run; only an archive that stays
// unavailable after the configured retries does.
package pipeline

import (
	"context"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/observability/metrics"
	"github.com/tphakala/skyarchive/internal/obstory"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/simultaneous"
)

// Stage names, used as metric labels and log fields.
const (
	StageCalibrate   = "calibrate"
	StageShower      = "shower"
	StageSatellite   = "satellite"
	StageFrameDrop   = "framedrop"
	StageTriangulate = "triangulate"
)

// Window selects the observations a job processes.
type Window struct {
	ObservatoryID string // empty selects every observatory
	TimeMin       float64
	TimeMax       float64
	Flush         bool // delete the stage's earlier results in the window first
	All           bool // ignore web:category when selecting tracks
	// MustStop is the wall-clock time after which no further item is started.
	// Zero applies the configured pipeline deadline.
	MustStop time.Time
}

// Report is the outcome of one run.
type Report struct {
	Stage    string
	RunID    string
	Outcomes map[string]int
	Errors   map[string]int // by error category
	Flushed  int64
	Rescued  int // tracks recovered from a truncated path
	Duration time.Duration
	// Stopped is set when the deadline passed before every item was started.
	Stopped bool
}

// Total is the number of items that ran.
func (r *Report) Total() int {
	var n int
	for _, c := range r.Outcomes {
		n += c
	}
	return n
}

// runRecorder is implemented by collectors that also track whole runs.
type runRecorder interface {
	RecordRun(stage string, seconds, completedAt float64)
}

// Runner executes jobs against one archive.
type Runner struct {
	settings  *conf.Settings
	archive   *datastore.Archive
	catalogue *refdata.Catalogue
	resolver  *obstory.Resolver
	recorder  metrics.Recorder
	limiter   *rate.Limiter
	log       logger.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder reports to rec instead of discarding metrics.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock replaces the wall clock used for deadlines and write timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// GetLogger returns the pipeline module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}

// NewRunner returns a runner. cat may be nil when no reference data is needed.
func NewRunner(settings *conf.Settings, archive *datastore.Archive, cat *refdata.Catalogue, opts ...Option) *Runner {
	if cat == nil {
		cat = &refdata.Catalogue{}
	}
	r := &Runner{
		settings:  settings,
		archive:   archive,
		catalogue: cat,
		resolver:  obstory.NewResolver(archive, cat, settings.Resolver),
		recorder:  metrics.NoOpRecorder{},
		limiter:   rate.NewLimiter(rate.Inf, 0),
		log:       GetLogger(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	if limit := settings.Archive.WriteRateLimit; limit > 0 {
		burst := max(settings.Archive.WriteBurst, 1)
		r.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) unixNow() float64 {
	return float64(r.now().UnixNano()) / 1e9
}

// commitFunc writes one item's results inside a transaction.
type commitFunc func(ctx context.Context, tx *datastore.Archive) error

// itemResult is what a stage computed for one item. A nil commit writes
// nothing. cause explains a rejected item whose state is still committed.
type itemResult struct {
	outcome string
	rescued bool
	commit  commitFunc
	cause   error
}

// item is one unit of work for the pool: an observation, or a group of them.
type item struct {
	id            string
	observatoryID string
	utc           float64
	obs           *datastore.Observation
	group         *simultaneous.Group
}

// run is the shared driver: it dispatches items to compute in order, with at
// most workers in flight, commits each result in its own transaction and
// tallies the outcomes. It stops dispatching at the deadline; items already
// started are allowed to finish.
func (r *Runner) run(ctx context.Context, stage string, w Window, workers int, items []item,
	compute func(ctx context.Context, it item) (itemResult, error),
) (*Report, error) {
	start := r.now()
	runID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, runID)
	log := r.log.WithContext(ctx).With(logger.String("stage", stage), logger.String("run_id", runID))

	report := &Report{Stage: stage, RunID: runID, Outcomes: map[string]int{}, Errors: map[string]int{}}
	mustStop, hasDeadline := r.deadline(start, w.MustStop)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Info("run started",
		logger.Int("items", len(items)),
		logger.Int("workers", workers),
		logger.Bool("deadline", hasDeadline))

	var mu sync.Mutex
	tally := func(res itemResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Outcomes[res.outcome]++
		if res.rescued {
			report.Rescued++
		}
		if err != nil {
			report.Errors[string(errors.CategoryOf(err))]++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range items {
		if hasDeadline && r.now().After(mustStop) {
			report.Stopped = true
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			began := time.Now()
			res, err := r.process(gctx, stage, it, compute)
			r.recorder.RecordOperation(stage, res.outcome)
			r.recorder.RecordDuration(stage, time.Since(began).Seconds())
			if err != nil {
				r.recorder.RecordError(stage, string(errors.CategoryOf(err)))
			}
			if res.rescued {
				r.recorder.RecordError(stage, string(errors.CategoryRescuedRecord))
			}
			tally(res, err)

			if errors.IsCategory(err, errors.CategoryArchiveUnavailable) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	report.Duration = r.now().Sub(start)
	if rr, ok := r.recorder.(runRecorder); ok && err == nil {
		rr.RecordRun(stage, report.Duration.Seconds(), r.unixNow())
	}

	fields := []logger.Field{
		logger.Int("total", report.Total()),
		logger.Int("rescued", report.Rescued),
		logger.Duration("duration", report.Duration),
		logger.Bool("stopped", report.Stopped),
	}
	for _, k := range slices.Sorted(maps.Keys(report.Outcomes)) {
		fields = append(fields, logger.Int(k, report.Outcomes[k]))
	}
	if err != nil {
		log.Error("run aborted", append(fields, logger.Error(err))...)
		return report, err
	}
	log.Info("run finished", fields...)
	return report, nil
}

// process computes and commits one item. Errors that only concern this item
// become an outcome; archive-unavailable errors are returned for the caller
// to abort on.
func (r *Runner) process(ctx context.Context, stage string, it item,
	compute func(ctx context.Context, it item) (itemResult, error),
) (itemResult, error) {
	log := r.log.WithContext(ctx).With(
		logger.String("stage", stage),
		logger.String("observation_id", it.id),
		logger.String("obstory_id", it.observatoryID))

	res, err := compute(ctx, it)
	if err != nil {
		outcome := outcomeOf(err)
		switch outcome {
		case metrics.OutcomeFailed:
			log.Warn("item failed", logger.Error(err))
		default:
			log.Debug("item not processed", logger.String("outcome", outcome), logger.Error(err))
		}
		return itemResult{outcome: outcome}, err
	}

	if res.commit != nil {
		err = r.withRetry(ctx, stage+"_commit", func() error {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			return r.archive.Transaction(ctx, func(tx *datastore.Archive) error {
				return res.commit(ctx, tx)
			})
		})
		if err != nil {
			log.Warn("commit failed", logger.Error(err))
			return itemResult{outcome: metrics.OutcomeFailed, rescued: res.rescued}, err
		}
	}
	if res.cause != nil {
		log.Debug("item rejected", logger.String("outcome", res.outcome), logger.Error(res.cause))
	}
	return res, res.cause
}

// outcomeOf maps a per-item error to its tally bucket.
func outcomeOf(err error) string {
	switch errors.CategoryOf(err) {
	case errors.CategoryInsufficientCameraMetadata, errors.CategoryMalformedTrackJSON,
		errors.CategoryValidation, errors.CategoryNotFound:
		return metrics.OutcomeSkipped
	case errors.CategoryFitRejected, errors.CategoryNoCandidates:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

// deadline is when dispatching stops. Without an explicit time or a pipeline
// deadline there is none.
func (r *Runner) deadline(start, mustStop time.Time) (time.Time, bool) {
	if !mustStop.IsZero() {
		return mustStop, true
	}
	if d := r.settings.Pipeline.Deadline; d > 0 {
		return start.Add(d), true
	}
	return time.Time{}, false
}

// search runs an observation query with archive retries.
func (r *Runner) search(ctx context.Context, q datastore.Query) ([]datastore.Observation, error) {
	var out []datastore.Observation
	err := r.withRetry(ctx, "search_observations", func() error {
		var err error
		out, err = r.archive.SearchObservations(ctx, q)
		return err
	})
	return out, err
}

// flushObservations deletes keys from the observations q selects.
func (r *Runner) flushObservations(ctx context.Context, q datastore.Query, keys []string) (int64, error) {
	var n int64
	err := r.withRetry(ctx, "flush", func() error {
		var err error
		n, err = r.archive.DeleteObservationMetadata(ctx, q, keys)
		return err
	})
	return n, err
}

// setObservation writes values onto one observation in key order.
func (r *Runner) setObservation(id string, values map[string]metadata.Value) commitFunc {
	return func(ctx context.Context, tx *datastore.Archive) error {
		utc := r.unixNow()
		for _, key := range slices.Sorted(maps.Keys(values)) {
			if err := tx.SetObservationMetadata(ctx, id, key, values[key], r.settings.Pipeline.User, utc); err != nil {
				return err
			}
		}
		return nil
	}
}

func itemsOf(observations []datastore.Observation) []item {
	out := make([]item, len(observations))
	for i := range observations {
		o := &observations[i]
		out[i] = item{id: o.PublicID, observatoryID: o.ObservatoryID, utc: o.Time, obs: o}
	}
	return out
}
