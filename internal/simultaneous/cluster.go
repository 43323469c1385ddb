// Package simultaneous groups moving-object observations from different
// observatories that overlap in time, as candidates for triangulation.
package simultaneous

import (
	"cmp"
	"slices"

	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/conf"
)

// Interval is the time span of one observation.
type Interval struct {
	ObservationID string
	ObservatoryID string
	Start, End    float64
}

// Location is an observatory's geographic position.
type Location struct {
	Latitude, Longitude, Altitude float64
}

// Group is a set of overlapping observations from at least two sites.
type Group struct {
	Members       []Interval
	Start, End    float64
	Observatories []string
	MaxBaseline   float64 // metres between the two most distant sites
}

// MemberIDs returns the member observation ids in start order.
func (g Group) MemberIDs() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.ObservationID
	}
	return out
}

// Clusterer grows groups of overlapping intervals.
type Clusterer struct {
	settings  conf.SimultaneousSettings
	locations map[string]Location
}

// NewClusterer returns a clusterer. Observatories missing from locations count
// as zero baseline. Zero settings take 400 m and 1 s.
func NewClusterer(locations map[string]Location, settings conf.SimultaneousSettings) *Clusterer {
	if settings.MinBaseline <= 0 {
		settings.MinBaseline = 400
	}
	if settings.TouchTolerance <= 0 {
		settings.TouchTolerance = 1
	}
	return &Clusterer{settings: settings, locations: locations}
}

// Cluster returns the groups that span at least two observatories more than
// the minimum baseline apart, in start order.
func (c *Clusterer) Cluster(intervals []Interval) []Group {
	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b Interval) int { return cmp.Compare(a.Start, b.Start) })

	used := make([]bool, len(sorted))
	tol := c.settings.TouchTolerance

	var out []Group
	for seed := range sorted {
		if used[seed] {
			continue
		}
		used[seed] = true
		members := []int{seed}
		lo, hi := sorted[seed].Start, sorted[seed].End

		for grew := true; grew; {
			grew = false
			for j := range sorted {
				if used[j] {
					continue
				}
				if sorted[j].Start < hi+tol && sorted[j].End > lo-tol {
					used[j] = true
					members = append(members, j)
					lo = min(lo, sorted[j].Start)
					hi = max(hi, sorted[j].End)
					grew = true
				}
			}
		}

		slices.Sort(members)
		g := Group{Start: lo, End: hi}
		for _, i := range members {
			g.Members = append(g.Members, sorted[i])
			if !slices.Contains(g.Observatories, sorted[i].ObservatoryID) {
				g.Observatories = append(g.Observatories, sorted[i].ObservatoryID)
			}
		}
		if len(g.Observatories) < 2 {
			continue
		}
		g.MaxBaseline = c.maxBaseline(g.Observatories)
		if g.MaxBaseline <= c.settings.MinBaseline {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (c *Clusterer) maxBaseline(ids []string) float64 {
	var best float64
	for i := range ids {
		a, ok := c.locations[ids[i]]
		if !ok {
			continue
		}
		pa := vector.FromLatLng(a.Latitude, a.Longitude, a.Altitude)
		for _, id := range ids[i+1:] {
			b, ok := c.locations[id]
			if !ok {
				continue
			}
			best = max(best, pa.DistanceTo(vector.FromLatLng(b.Latitude, b.Longitude, b.Altitude)))
		}
	}
	return best
}
