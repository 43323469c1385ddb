package simultaneous

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/conf"
)

var sites = map[string]Location{
	"X":       {Latitude: 52.2, Longitude: 0.12},
	"Y":       {Latitude: 52.21, Longitude: 0.12}, // about 1.1 km north of X
	"X-twin":  {Latitude: 52.2, Longitude: 0.1201},
	"faraway": {Latitude: 51.5, Longitude: -0.1},
}

func TestClusterScenario(t *testing.T) {
	t.Parallel()

	groups := NewClusterer(sites, conf.SimultaneousSettings{}).Cluster([]Interval{
		{ObservationID: "C", ObservatoryID: "X", Start: 200, End: 201},
		{ObservationID: "B", ObservatoryID: "Y", Start: 101, End: 102},
		{ObservationID: "A", ObservatoryID: "X", Start: 100, End: 102},
	})

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, []string{"A", "B"}, g.MemberIDs())
	assert.ElementsMatch(t, []string{"X", "Y"}, g.Observatories)
	assert.InDelta(t, 100, g.Start, 0)
	assert.InDelta(t, 102, g.End, 0)
	assert.Greater(t, g.MaxBaseline, 500.0)
}

func TestClusterChainsAndTouching(t *testing.T) {
	t.Parallel()

	c := NewClusterer(sites, conf.SimultaneousSettings{})

	// B bridges A and C, and D touches C's end within a second.
	groups := c.Cluster([]Interval{
		{ObservationID: "A", ObservatoryID: "X", Start: 0, End: 2},
		{ObservationID: "C", ObservatoryID: "faraway", Start: 3, End: 5},
		{ObservationID: "B", ObservatoryID: "Y", Start: 1.5, End: 3.5},
		{ObservationID: "D", ObservatoryID: "X", Start: 5.8, End: 6},
		{ObservationID: "E", ObservatoryID: "Y", Start: 7.5, End: 8},
	})
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, groups[0].MemberIDs())
	assert.InDelta(t, 6, groups[0].End, 0)
}

func TestClusterBaselineFilter(t *testing.T) {
	t.Parallel()

	c := NewClusterer(sites, conf.SimultaneousSettings{})
	groups := c.Cluster([]Interval{
		{ObservationID: "A", ObservatoryID: "X", Start: 0, End: 2},
		{ObservationID: "B", ObservatoryID: "X-twin", Start: 1, End: 2},
	})
	assert.Empty(t, groups, "two cameras on one mount")

	groups = c.Cluster([]Interval{
		{ObservationID: "A", ObservatoryID: "X", Start: 0, End: 2},
		{ObservationID: "B", ObservatoryID: "unknown", Start: 1, End: 2},
	})
	assert.Empty(t, groups)
}

func TestClusterSeparateGroups(t *testing.T) {
	t.Parallel()

	a := Interval{ObservationID: "A", ObservatoryID: "X", Start: 0, End: 2}
	b := Interval{ObservationID: "B", ObservatoryID: "Y", Start: 1, End: 2}
	c := Interval{ObservationID: "C", ObservatoryID: "Y", Start: 100, End: 101}
	d := Interval{ObservationID: "D", ObservatoryID: "X", Start: 100.5, End: 101.5}

	got := NewClusterer(sites, conf.SimultaneousSettings{}).Cluster([]Interval{d, b, c, a})
	want := []Group{
		{Members: []Interval{a, b}, Start: 0, End: 2, Observatories: []string{"X", "Y"}},
		{Members: []Interval{c, d}, Start: 100, End: 101.5, Observatories: []string{"X", "Y"}},
	}
	opts := cmp.Options{
		cmpopts.IgnoreFields(Group{}, "MaxBaseline"),
		cmpopts.SortSlices(func(x, y string) bool { return x < y }),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("Cluster() mismatch (-want +got):\n%s", diff)
	}
}
