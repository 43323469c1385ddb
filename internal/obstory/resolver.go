// Package obstory resolves the full camera state of an observatory at an instant:
// where it is, which way it points, how wide it sees and how its lens distorts.
package obstory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/refdata"
)

// Where a Pointing's orientation came from.
const (
	SourceDailyAverage = "daily_average"
	SourcePerImage     = "per_image"
)

// Source is the subset of the archive the resolver reads.
type Source interface {
	GetObservatory(ctx context.Context, id string) (*datastore.Observatory, error)
	ObservatoryStatus(ctx context.Context, id string, utc float64) (metadata.Map, error)
	SearchObservations(ctx context.Context, q datastore.Query) ([]datastore.Observation, error)
}

// Pointing is the resolved state of one camera at one instant. Angles are
// degrees.
type Pointing struct {
	ObservatoryID string
	UTC           float64

	Altitude    float64 // of the field centre
	Azimuth     float64
	Tilt        float64 // rotation of the image's up direction from the local vertical
	Roll        float64 // celestial position angle of the image's up direction at fit time
	AngWidth    float64
	AngHeight   float64
	Uncertainty float64
	FitQuality  float64

	PixelWidth  int
	PixelHeight int
	Lens        string
	Distortion  [3]float64

	Latitude  float64
	Longitude float64
	AltitudeM float64

	Source       string
	FitSourceID  string // observation the per-image orientation came from
	DistortionBy string // "observatory" or "lens"
}

// Resolver turns archive history into Pointing records. A Resolver caches
// answers for the lifetime of one run; it is safe for concurrent use.
type Resolver struct {
	src      Source
	cat      *refdata.Catalogue
	settings conf.ResolverSettings
	cache    *cache.Cache
	log      logger.Logger
}

// GetLogger returns the obstory module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("obstory")
}

// NewResolver builds a resolver over src. cat supplies camera and lens defaults.
func NewResolver(src Source, cat *refdata.Catalogue, settings conf.ResolverSettings) *Resolver {
	if settings.FitQualityThreshold <= 0 {
		settings.FitQualityThreshold = 2.5
	}
	if settings.Window <= 0 {
		settings.Window = time.Hour
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = 30 * time.Minute
	}
	if cat == nil {
		cat = &refdata.Catalogue{}
	}
	return &Resolver{
		src:      src,
		cat:      cat,
		settings: settings,
		cache:    cache.New(settings.CacheTTL, 2*settings.CacheTTL),
		log:      GetLogger(),
	}
}

func insufficient(id string, utc float64, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("obstory").
		Category(errors.CategoryInsufficientCameraMetadata).
		Context("obstory_id", id).
		Context("utc", utc).
		Build()
}

// Resolve returns the camera state of observatory id at utc. Unless
// forceDailyAverage is set, a good per-image fit within the configured window
// replaces the daily-average orientation.
func (r *Resolver) Resolve(ctx context.Context, id string, utc float64, forceDailyAverage bool) (*Pointing, error) {
	key := fmt.Sprintf("%s|%.3f|%t", id, utc, forceDailyAverage)
	if v, ok := r.cache.Get(key); ok {
		p := *v.(*Pointing)
		return &p, nil
	}

	p, err := r.resolve(ctx, id, utc, forceDailyAverage)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, p, cache.DefaultExpiration)

	out := *p
	return &out, nil
}

func (r *Resolver) observatory(ctx context.Context, id string) (*datastore.Observatory, error) {
	if v, ok := r.cache.Get("obstory|" + id); ok {
		return v.(*datastore.Observatory), nil
	}
	o, err := r.src.GetObservatory(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set("obstory|"+id, o, cache.DefaultExpiration)
	return o, nil
}

func (r *Resolver) resolve(ctx context.Context, id string, utc float64, forceDailyAverage bool) (*Pointing, error) {
	obs, err := r.observatory(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := r.src.ObservatoryStatus(ctx, id, utc)
	if err != nil {
		return nil, err
	}

	p := &Pointing{
		ObservatoryID: id,
		UTC:           utc,
		Latitude:      obs.Latitude,
		Longitude:     obs.Longitude,
		AltitudeM:     obs.Altitude,
		Source:        SourceDailyAverage,
	}
	if v, ok := status.Float(metadata.KeyLatitude); ok {
		p.Latitude = v
	}
	if v, ok := status.Float(metadata.KeyLongitude); ok {
		p.Longitude = v
	}
	if v, ok := status.Float(metadata.KeyAltitude); ok {
		p.AltitudeM = v
	}

	r.pixelGrid(p, status)
	lens, haveLens := r.lens(p, status)

	havePointing := applyOrientation(p, status)
	dailyQuality := math.Inf(1)
	if v, ok := status.Float(metadata.KeyOrientationFitToDaily); ok {
		dailyQuality = v
	}
	p.FitQuality = dailyQuality

	if !forceDailyAverage {
		found, err := r.perImage(ctx, p, dailyQuality)
		if err != nil {
			return nil, err
		}
		havePointing = havePointing || found
	}

	if p.AngWidth <= 0 && haveLens {
		p.AngWidth = lens.FoV
	}
	if p.AngHeight <= 0 && p.AngWidth > 0 && p.PixelWidth > 0 {
		// Same pixel scale on both axes on the tangent plane.
		halfW := math.Tan(p.AngWidth / 2 * math.Pi / 180)
		p.AngHeight = 2 * math.Atan(halfW*float64(p.PixelHeight)/float64(p.PixelWidth)) * 180 / math.Pi
	}

	switch {
	case p.PixelWidth <= 0 || p.PixelHeight <= 0:
		return nil, insufficient(id, utc, "observatory %s has no pixel dimensions at %.0f", id, utc)
	case !havePointing:
		return nil, insufficient(id, utc, "observatory %s has no orientation at %.0f", id, utc)
	case p.AngWidth <= 0 || p.AngHeight <= 0:
		return nil, insufficient(id, utc, "observatory %s has no field of view at %.0f", id, utc)
	}

	p.Distortion, p.DistortionBy = r.distortion(status, lens, haveLens)

	r.log.Trace("resolved pointing",
		logger.String("obstory_id", id),
		logger.Float64("utc", utc),
		logger.String("source", p.Source),
		logger.Float64("altitude", p.Altitude),
		logger.Float64("azimuth", p.Azimuth))
	return p, nil
}

// PixelGrid returns the image dimensions of observatory id at utc without
// requiring any pointing history. The calibrator uses it on cameras that have
// never been fitted.
func (r *Resolver) PixelGrid(ctx context.Context, id string, utc float64) (width, height int, err error) {
	status, err := r.src.ObservatoryStatus(ctx, id, utc)
	if err != nil {
		return 0, 0, err
	}
	p := &Pointing{ObservatoryID: id}
	r.pixelGrid(p, status)
	if p.PixelWidth <= 0 || p.PixelHeight <= 0 {
		return 0, 0, insufficient(id, utc, "observatory %s has no pixel dimensions at %.0f", id, utc)
	}
	return p.PixelWidth, p.PixelHeight, nil
}

func (r *Resolver) pixelGrid(p *Pointing, status metadata.Map) {
	if name, ok := status.String(metadata.KeyCamera); ok {
		if cam, ok := r.cat.Cameras[name]; ok {
			p.PixelWidth, p.PixelHeight = cam.Width, cam.Height
		}
	}
	if w, ok := status.Float(metadata.KeyCameraWidth); ok {
		p.PixelWidth = int(w)
	}
	if h, ok := status.Float(metadata.KeyCameraHeight); ok {
		p.PixelHeight = int(h)
	}
}

func (r *Resolver) lens(p *Pointing, status metadata.Map) (refdata.LensModel, bool) {
	name, ok := status.String(metadata.KeyLens)
	if !ok {
		return refdata.LensModel{}, false
	}
	p.Lens = name
	lens, ok := r.cat.Lenses[name]
	if !ok {
		r.log.Warn("unknown lens", logger.String("obstory_id", p.ObservatoryID), logger.String("lens", name))
	}
	return lens, ok
}

// applyOrientation copies orientation keys from m into p and reports whether
// both altitude and azimuth were present.
func applyOrientation(p *Pointing, m metadata.Map) bool {
	alt, okAlt := m.Float(metadata.KeyOrientationAltitude)
	az, okAz := m.Float(metadata.KeyOrientationAzimuth)
	if !okAlt || !okAz {
		return false
	}
	p.Altitude, p.Azimuth = alt, az
	for key, dst := range map[string]*float64{
		metadata.KeyOrientationTilt:        &p.Tilt,
		metadata.KeyOrientationRoll:        &p.Roll,
		metadata.KeyOrientationAngWidth:    &p.AngWidth,
		metadata.KeyOrientationAngHeight:   &p.AngHeight,
		metadata.KeyOrientationUncertainty: &p.Uncertainty,
	} {
		if v, ok := m.Float(key); ok {
			*dst = v
		}
	}
	return true
}

// perImage overrides p with the best per-image fit near p.UTC that beats both
// the threshold and the daily average.
func (r *Resolver) perImage(ctx context.Context, p *Pointing, dailyQuality float64) (bool, error) {
	window := r.settings.Window.Seconds()
	candidates, err := r.src.SearchObservations(ctx, datastore.Query{
		ObservatoryID: p.ObservatoryID,
		TimeMin:       p.UTC - window,
		TimeMax:       p.UTC + window,
		HasKey:        metadata.KeyOrientationFitQuality,
	})
	if err != nil {
		return false, err
	}

	var best *datastore.Observation
	bestQuality := math.Min(r.settings.FitQualityThreshold, dailyQuality)
	for i := range candidates {
		q, ok := candidates[i].Metadata.Float(metadata.KeyOrientationFitQuality)
		if !ok || q >= bestQuality {
			continue
		}
		if _, ok := candidates[i].Metadata.Float(metadata.KeyOrientationAltitude); !ok {
			continue
		}
		best, bestQuality = &candidates[i], q
	}
	if best == nil {
		return false, nil
	}

	if !applyOrientation(p, best.Metadata) {
		return false, nil
	}
	p.FitQuality = bestQuality
	p.Source = SourcePerImage
	p.FitSourceID = best.PublicID
	return true, nil
}

// distortion prefers a calibrated observatory override. Overrides are stored
// either as [K1, K2, K3] or as the full eight-parameter fit whose last three
// entries are the coefficients.
func (r *Resolver) distortion(status metadata.Map, lens refdata.LensModel, haveLens bool) ([3]float64, string) {
	if params, ok := status.FloatList(metadata.KeyCalibrationBarrel); ok && (len(params) == 3 || len(params) == 8) {
		tail := params[len(params)-3:]
		return [3]float64{tail[0], tail[1], tail[2]}, "observatory"
	}
	if haveLens {
		return lens.Barrel, "lens"
	}
	return [3]float64{}, "lens"
}
