package triangulation

import (
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/track"
)

// GroupMetadata renders an accepted solution as the group's metadata. Rejected
// solutions carry only their status and sight-line count.
func (s *Solution) GroupMetadata() (map[string]metadata.Value, error) {
	out := map[string]metadata.Value{
		metadata.KeyTriangulationStatus:         metadata.String(s.Status),
		metadata.KeyTriangulationSightLineCount: metadata.Float(float64(s.SightLineCount)),
		metadata.KeyTriangulationMaxBaseline:    metadata.Float(s.MaxBaseline),
	}
	if s.Status != StatusAccepted {
		return out, nil
	}

	out[metadata.KeyTriangulationSpeed] = metadata.Float(s.GeocentreSpeed)
	out[metadata.KeyTriangulationGeocentreSpeed] = metadata.Float(s.GeocentreSpeed)
	out[metadata.KeyTriangulationObserverSpeed] = metadata.Float(s.ObserverSpeed)
	out[metadata.KeyTriangulationMeanAltitude] = metadata.Float(s.MeanAltitude)
	out[metadata.KeyTriangulationMaxAngularOffset] = metadata.Float(s.MaxAngularOffset)

	directions := map[string]track.SkyPos{
		metadata.KeyTriangulationGeocentreHeading: s.GeocentreHeading,
		metadata.KeyTriangulationObserverHeading:  s.ObserverHeading,
		metadata.KeyTriangulationRadiantDirection: s.Radiant,
	}
	for key, d := range directions {
		v, err := metadata.JSON([2]float64{d.RA, d.Dec})
		if err != nil {
			return nil, err
		}
		out[key] = v
	}

	path := make([][4]float64, len(s.Positions))
	for i, p := range s.Positions {
		path[i] = [4]float64{p.UTC, p.Latitude, p.Longitude, p.AltitudeM}
	}
	v, err := metadata.JSON(path)
	if err != nil {
		return nil, err
	}
	out[metadata.KeyTriangulationPath] = v
	return out, nil
}

// ObservationMetadata renders the samples of one member observation as rows of
// [ra, dec, alt, az, utc, lat, lng, alt_m, dist_m, ang_mismatch_deg]. ok is
// false when the observation contributed no sight lines.
func (s *Solution) ObservationMetadata(observationID string) (map[string]metadata.Value, bool, error) {
	var rows [][10]float64
	for _, p := range s.Positions {
		if p.ObservationID != observationID {
			continue
		}
		rows = append(rows, [10]float64{
			p.RA, p.Dec, p.Alt, p.Az, p.UTC,
			p.Latitude, p.Longitude, p.AltitudeM, p.DistanceM, p.AngMismatch,
		})
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	v, err := metadata.JSON(rows)
	if err != nil {
		return nil, false, err
	}
	return map[string]metadata.Value{
		metadata.KeyTriangulationSamples:        v,
		metadata.KeyTriangulationGeocentreSpeed: metadata.Float(s.GeocentreSpeed),
		metadata.KeyTriangulationObserverSpeed:  metadata.Float(s.ObserverSpeed),
	}, true, nil
}
