package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/metadata"
)

func TestImportObservatories(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)

	r := NewRunner(testSettings(), a, testCatalogue(t))
	n, err := r.ImportObservatories(ctx, "../refdata/testdata/known_observatories.xml", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	o, err := a.GetObservatory(ctx, "eddington0")
	require.NoError(t, err)
	assert.Equal(t, "Cambridge Eddington", o.Name)
	assert.InDelta(t, 52.2, o.Latitude, 0)

	status, err := a.ObservatoryStatus(ctx, "eddington0", sceneStart)
	require.NoError(t, err)
	camera, _ := status.String(metadata.KeyCamera)
	lens, _ := status.String(metadata.KeyLens)
	assert.Equal(t, "pi_camera_v2", camera)
	assert.Equal(t, "ideal_40x30", lens)

	// Importing again only refreshes the rows.
	n, err = r.ImportObservatories(ctx, "../refdata/testdata/known_observatories.xml", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	all, err := a.ListObservatories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportSatellites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	r := NewRunner(testSettings(), a, nil)

	n, err := r.ImportSatellites(ctx, "../refdata/testdata/satellites.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := a.SatelliteCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The fragment is debris and never offered as a candidate.
	candidates, err := a.SatelliteCandidates(ctx, 1590969600, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 25544, candidates[0].NoradID)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o600))
	_, err = r.ImportSatellites(ctx, empty)
	require.Error(t, err)
}
