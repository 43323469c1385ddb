package obstory

import (
	"math"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/projection"
)

const deg = math.Pi / 180

// FieldCentre returns the (RA hours, Dec degrees) at the middle of the frame at
// utc. The camera is fixed in altitude and azimuth, so the centre drifts across
// the stars.
func (p *Pointing) FieldCentre(utc float64) (raHours, decDeg float64) {
	return ephemeris.RaDec(p.Altitude, p.Azimuth, utc, p.Latitude, p.Longitude)
}

// CameraAt returns the projection model of the camera at utc. The celestial
// position angle of the frame is the position angle of the zenith seen from the
// field centre, less the camera tilt.
func (p *Pointing) CameraAt(utc float64) projection.Camera {
	raH, decD := p.FieldCentre(utc)
	zRaH, zDecD := ephemeris.ZenithPosition(p.Latitude, p.Longitude, utc)

	ra, dec := raH*15*deg, decD*deg
	pa := projection.PositionAngle(ra, dec, zRaH*15*deg, zDecD*deg)

	return projection.Camera{
		RA:     ra,
		Dec:    dec,
		Width:  float64(p.PixelWidth),
		Height: float64(p.PixelHeight),
		FovX:   p.AngWidth * deg,
		FovY:   p.AngHeight * deg,
		PosAng: pa - p.Tilt*deg,
		K1:     p.Distortion[0],
		K2:     p.Distortion[1],
		K3:     p.Distortion[2],
	}
}
