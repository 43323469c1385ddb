package refdata

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Shower is one entry of the meteor shower working list.
type Shower struct {
	IAUCode            string
	Name               string
	PeakSolarLongitude float64 // degrees
	StartOffset        float64 // days from peak to the start of activity, <= 0
	EndOffset          float64 // days from peak to the end of activity, >= 0
	RadiantRA          float64 // hours, J2000
	RadiantDec         float64 // degrees, J2000
	Speed              float64 // geocentric, km/s
	PeakZHR            float64
	// VariableZHR marks a shower listed with a variable rate. PeakZHR is then
	// zero and means unknown, not inactive.
	VariableZHR bool
}

type xmlShowers struct {
	Showers []struct {
		IAUCode string `xml:"IAU_code"`
		Name    string `xml:"name"`
		Start   string `xml:"start"`
		End     string `xml:"end"`
		Peak    string `xml:"peak"`
		SolLong string `xml:"pos"`
		RA      string `xml:"ra"` // degrees
		Dec     string `xml:"de"`
		Speed   string `xml:"v"`
		ZHR     string `xml:"zhr"`
	} `xml:"shower"`
}

// ParseShowers reads an IMO working-list XML file. The activity window is given
// as "Mon DD" strings and converted to day offsets from the peak date.
func ParseShowers(r io.Reader) ([]Shower, error) {
	var doc xmlShowers
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode showers: %w", err)
	}

	out := make([]Shower, 0, len(doc.Showers))
	for _, s := range doc.Showers {
		name := strings.TrimSpace(s.Name)

		peak, err := parseMonthDay(s.Peak)
		if err != nil {
			return nil, fmt.Errorf("shower %q peak: %w", name, err)
		}
		start, err := parseMonthDay(s.Start)
		if err != nil {
			return nil, fmt.Errorf("shower %q start: %w", name, err)
		}
		end, err := parseMonthDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("shower %q end: %w", name, err)
		}

		var nums [5]float64
		for i, field := range []string{s.SolLong, s.RA, s.Dec, s.Speed} {
			if nums[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
				return nil, fmt.Errorf("shower %q: %w", name, err)
			}
		}
		variable := strings.EqualFold(strings.TrimSpace(s.ZHR), "var")
		if !variable {
			if nums[4], err = strconv.ParseFloat(strings.TrimSpace(s.ZHR), 64); err != nil {
				return nil, fmt.Errorf("shower %q zhr: %w", name, err)
			}
		}

		out = append(out, Shower{
			IAUCode:            strings.TrimSpace(s.IAUCode),
			Name:               name,
			PeakSolarLongitude: nums[0],
			StartOffset:        min(dayOffset(peak, start), 0),
			EndOffset:          max(dayOffset(peak, end), 0),
			RadiantRA:          nums[1] / 15,
			RadiantDec:         nums[2],
			Speed:              nums[3],
			PeakZHR:            nums[4],
			VariableZHR:        variable,
		})
	}
	return out, nil
}

// parseMonthDay parses "Aug 12" into a date in a fixed non-leap year.
func parseMonthDay(s string) (time.Time, error) {
	return time.Parse("2006 Jan 2", "2001 "+strings.Join(strings.Fields(s), " "))
}

// dayOffset returns the days from a to b, folded into (-182.5, 182.5] so windows
// that span the new year come out right.
func dayOffset(a, b time.Time) float64 {
	d := b.Sub(a).Hours() / 24
	switch {
	case d > 182.5:
		d -= 365
	case d <= -182.5:
		d += 365
	}
	return d
}
