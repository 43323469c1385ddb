package refdata

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/skyarchive/internal/errors"
)

// KnownObservatory is a default observatory record with the instruments it
// was installed with.
type KnownObservatory struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Altitude  float64
	Owner     string
	Camera    string
	Lens      string
}

type xmlObservatories struct {
	Observatories []struct {
		ID        string  `xml:"obstory_id"`
		Name      string  `xml:"obstory_name"`
		Latitude  float64 `xml:"latitude"`
		Longitude float64 `xml:"longitude"`
		Altitude  float64 `xml:"altitude"`
		Owner     string  `xml:"owner"`
		Camera    string  `xml:"camera"`
		Lens      string  `xml:"lens"`
	} `xml:"obstory"`
}

// ParseObservatories reads known_observatories.xml.
func ParseObservatories(r io.Reader) ([]KnownObservatory, error) {
	var doc xmlObservatories
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode observatories: %w", err)
	}

	out := make([]KnownObservatory, 0, len(doc.Observatories))
	seen := make(map[string]bool, len(doc.Observatories))
	for _, o := range doc.Observatories {
		id := strings.TrimSpace(o.ID)
		switch {
		case id == "":
			return nil, errors.NewStd("observatory without obstory_id")
		case seen[id]:
			return nil, fmt.Errorf("observatory %q listed twice", id)
		case o.Latitude < -90 || o.Latitude > 90 || o.Longitude < -180 || o.Longitude > 360:
			return nil, fmt.Errorf("observatory %q: location out of range", id)
		}
		seen[id] = true
		out = append(out, KnownObservatory{
			ID:        id,
			Name:      strings.TrimSpace(o.Name),
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Altitude:  o.Altitude,
			Owner:     strings.TrimSpace(o.Owner),
			Camera:    strings.TrimSpace(o.Camera),
			Lens:      strings.TrimSpace(o.Lens),
		})
	}
	return out, nil
}
