package track

import (
	"context"
	"fmt"
	"math"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/obstory"
)

const deg = math.Pi / 180

// SkyPos is an equatorial position: RA in hours, Dec in degrees.
type SkyPos struct {
	RA, Dec float64
}

// HorizonPos is a topocentric position in degrees.
type HorizonPos struct {
	Alt, Az float64
}

// SightLine is the half-line from an observer towards one detection. Origin and
// Direction are Earth-fixed; the direction uses the Greenwich hour angle so
// sight lines from different stations at the same instant compare directly.
type SightLine struct {
	ObservationID string
	ObservatoryID string
	Index         int
	UTC           float64

	Latitude, Longitude, AltitudeM float64
	Sky                            SkyPos

	Origin    vector.Point
	Direction vector.Vector
}

// Line returns the Earth-fixed sight line.
func (s SightLine) Line() vector.Line {
	return vector.Line{X0: s.Origin, Dir: s.Direction}
}

// Celestial returns the sight line in the non-rotating frame at its own
// instant, where the x axis points at RA = 0.
func (s SightLine) Celestial() vector.Line {
	return vector.Line{
		X0:  vector.FromLatLngAt(s.Latitude, s.Longitude, s.AltitudeM, s.UTC),
		Dir: vector.FromRaDec(s.Sky.RA, s.Sky.Dec),
	}
}

// Track is one projected observation. Samples, Sky, Horizon and SightLines are
// parallel.
type Track struct {
	ObservationID  string
	ObservatoryID  string
	UTC            float64
	Duration       float64
	DetectionCount int

	Pointing      *obstory.Pointing
	Samples       []Sample
	Sky           []SkyPos
	Horizon       []HorizonPos
	SightLines    []SightLine
	Notifications []string
}

// Rescued reports whether the path had to be recovered from a truncated record.
func (t *Track) Rescued() bool {
	for _, n := range t.Notifications {
		if n == NoteRescued {
			return true
		}
	}
	return false
}

// PathLength is the angular distance in degrees from the first to the last
// sky position.
func (t *Track) PathLength() float64 {
	if len(t.Sky) < 2 {
		return 0
	}
	a, b := t.Sky[0], t.Sky[len(t.Sky)-1]
	return projection.AngDist(a.RA*15*deg, a.Dec*deg, b.RA*15*deg, b.Dec*deg) / deg
}

// PathRaDec renders the sky path as a JSON list of [ra_hours, dec_deg, utc].
func (t *Track) PathRaDec() (metadata.Value, error) {
	rows := make([][3]float64, len(t.Sky))
	for i, s := range t.Sky {
		rows[i] = [3]float64{s.RA, s.Dec, t.Samples[i].UTC}
	}
	return metadata.JSON(rows)
}

// Resolver provides camera state.
type Resolver interface {
	Resolve(ctx context.Context, id string, utc float64, forceDailyAverage bool) (*obstory.Pointing, error)
}

// Projector projects moving-object observations onto the sky.
type Projector struct {
	resolver Resolver
	log      logger.Logger
}

// NewProjector returns a projector using r for camera state.
func NewProjector(r Resolver) *Projector {
	return &Projector{resolver: r, log: logger.Global().Module("track")}
}

// Project parses the observation's path and projects every sample.
func (p *Projector) Project(ctx context.Context, obs *datastore.Observation) (*Track, error) {
	pathJSON, ok := obs.Metadata.String(metadata.KeyPath)
	if !ok {
		return nil, errors.Newf("observation %s has no pixel path", obs.PublicID).
			Component("track").
			Category(errors.CategoryMalformedTrackJSON).
			ObservationContext(obs.PublicID, obs.ObservatoryID).
			Build()
	}
	bezierJSON, _ := obs.Metadata.String(metadata.KeyPathBezier)

	samples, notes, err := ParsePath(pathJSON, bezierJSON)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		p.log.Info("rescued truncated path",
			logger.String("observation_id", obs.PublicID),
			logger.String("obstory_id", obs.ObservatoryID),
			logger.Int("samples", len(samples)))
	}

	pointing, err := p.resolver.Resolve(ctx, obs.ObservatoryID, obs.Time, false)
	if err != nil {
		return nil, err
	}

	if err := checkInFrame(pointing, samples); err != nil {
		return nil, errors.New(err).
			Component("track").
			Category(errors.CategoryValidation).
			ObservationContext(obs.PublicID, obs.ObservatoryID).
			Build()
	}

	t := ProjectSamples(pointing, samples)
	t.ObservationID = obs.PublicID
	t.UTC = obs.Time
	t.Notifications = notes
	t.Duration, _ = obs.Metadata.Float(metadata.KeyDuration)
	if n, ok := obs.Metadata.Float(metadata.KeyDetectionCount); ok {
		t.DetectionCount = int(n)
	}
	for i := range t.SightLines {
		t.SightLines[i].ObservationID = obs.PublicID
	}
	return t, nil
}

// checkInFrame rejects samples that lie off the camera's pixel grid.
func checkInFrame(pointing *obstory.Pointing, samples []Sample) error {
	w, h := float64(pointing.PixelWidth), float64(pointing.PixelHeight)
	for i, s := range samples {
		if s.X < 0 || s.Y < 0 || s.X > w || s.Y > h {
			return fmt.Errorf("sample %d at (%.1f, %.1f) is outside the %dx%d frame",
				i, s.X, s.Y, pointing.PixelWidth, pointing.PixelHeight)
		}
	}
	return nil
}

// ProjectSamples projects pixel samples through a resolved camera.
func ProjectSamples(pointing *obstory.Pointing, samples []Sample) *Track {
	t := &Track{
		ObservatoryID: pointing.ObservatoryID,
		Pointing:      pointing,
		Samples:       samples,
		Sky:           make([]SkyPos, len(samples)),
		Horizon:       make([]HorizonPos, len(samples)),
		SightLines:    make([]SightLine, len(samples)),
	}
	origin := vector.FromLatLng(pointing.Latitude, pointing.Longitude, pointing.AltitudeM)

	for i, s := range samples {
		ra, dec := pointing.CameraAt(s.UTC).Unproject(s.X, s.Y)
		sky := SkyPos{RA: ra / deg / 15, Dec: dec / deg}
		alt, az := ephemeris.AltAz(sky.RA, sky.Dec, s.UTC, pointing.Latitude, pointing.Longitude)

		t.Sky[i] = sky
		t.Horizon[i] = HorizonPos{Alt: alt, Az: az}
		t.SightLines[i] = SightLine{
			ObservatoryID: pointing.ObservatoryID,
			Index:         i,
			UTC:           s.UTC,
			Latitude:      pointing.Latitude,
			Longitude:     pointing.Longitude,
			AltitudeM:     pointing.AltitudeM,
			Sky:           sky,
			Origin:        origin,
			Direction:     vector.FromRaDec(sky.RA-ephemeris.SiderealTime(s.UTC), sky.Dec),
		}
	}
	return t
}

// SkyToPixel returns where (raHours, decDeg) falls on the camera at utc. ok is
// false when the position has no image or lies off the pixel grid.
func SkyToPixel(pointing *obstory.Pointing, raHours, decDeg, utc float64) (x, y float64, ok bool) {
	cam := pointing.CameraAt(utc)
	x, y, ok = cam.Project(raHours*15*deg, decDeg*deg)
	return x, y, ok && cam.InFrame(x, y)
}
