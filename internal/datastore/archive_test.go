package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/metadata"
)

// newTestArchive opens a migrated archive in a temporary directory.
func newTestArchive(t *testing.T) *Archive {
	t.Helper()

	m, err := NewManager(&conf.ArchiveSettings{
		Type:   "sqlite",
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "archive.db")},
	})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	return NewArchive(m.DB())
}

func seedObservatory(t *testing.T, a *Archive, id string, lat, lng float64) {
	t.Helper()
	require.NoError(t, a.UpsertObservatory(context.Background(), Observatory{
		PublicID: id, Name: id, Latitude: lat, Longitude: lng, Owner: "test",
	}))
}

func TestNewManagerRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&conf.ArchiveSettings{Type: "postgres"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestObservatoryUpsertKeepsLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)

	seedObservatory(t, a, "cam1", 52.2, 0.12)
	require.NoError(t, a.UpsertObservatory(ctx, Observatory{PublicID: "cam1", Name: "renamed", Latitude: 10, Owner: "new"}))

	o, err := a.GetObservatory(ctx, "cam1")
	require.NoError(t, err)
	assert.Equal(t, "new", o.Owner)
	assert.Equal(t, "renamed", o.Name)
	assert.InDelta(t, 52.2, o.Latitude, 0)

	_, err = a.GetObservatory(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	list, err := a.ListObservatories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestObservatoryStatusHonoursRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	seedObservatory(t, a, "cam1", 52.2, 0.12)

	require.NoError(t, a.SetObservatoryMetadata(ctx, "cam1", metadata.KeyLens, metadata.String("wide"), "u", 100))
	require.NoError(t, a.SetObservatoryMetadata(ctx, "cam1", metadata.KeyCameraWidth, metadata.Float(1280), "u", 100))
	require.NoError(t, a.SetObservatoryMetadata(ctx, "cam1", metadata.Refresh, metadata.Float(1), "u", 200))
	require.NoError(t, a.SetObservatoryMetadata(ctx, "cam1", metadata.KeyLens, metadata.String("narrow"), "u", 300))

	status, err := a.ObservatoryStatus(ctx, "cam1", 150)
	require.NoError(t, err)
	lens, _ := status.String(metadata.KeyLens)
	assert.Equal(t, "wide", lens)

	status, err = a.ObservatoryStatus(ctx, "cam1", 400)
	require.NoError(t, err)
	lens, _ = status.String(metadata.KeyLens)
	assert.Equal(t, "narrow", lens)
	_, ok := status.Float(metadata.KeyCameraWidth)
	assert.False(t, ok)

	n, err := a.DeleteObservatoryMetadata(ctx, "cam1", []string{metadata.KeyLens}, 250, 350)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestObservationMetadataAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	seedObservatory(t, a, "cam1", 52.2, 0.12)

	for i, cat := range []string{metadata.CategoryMeteor, metadata.CategorySatellite, metadata.CategoryMeteor} {
		require.NoError(t, a.CreateObservation(ctx, Observation{
			PublicID:      []string{"o1", "o2", "o3"}[i],
			ObservatoryID: "cam1",
			Time:          float64(1000 + 10*i),
			Type:          metadata.ObservationTypeMovingObject,
			Metadata:      metadata.Map{metadata.KeyCategory: metadata.String(cat)},
			Files: []File{{
				RepositoryFname: []string{"f1", "f2", "f3"}[i],
				MimeType:        "video/mp4",
				SemanticType:    metadata.SemanticTypeTriggerVideo,
				Time:            float64(1000 + 10*i),
			}},
		}))
	}

	meteors, err := a.SearchObservations(ctx, Query{
		ObservatoryID: "cam1", TimeMin: 0, TimeMax: 2000, Category: metadata.CategoryMeteor,
	})
	require.NoError(t, err)
	require.Len(t, meteors, 2)
	assert.Equal(t, "o1", meteors[0].PublicID)
	assert.Equal(t, "cam1", meteors[0].ObservatoryID)

	require.NoError(t, a.SetObservationMetadata(ctx, "o1", metadata.KeyShowerName, metadata.String("Perseids"), "u", 1000))
	require.NoError(t, a.SetObservationMetadata(ctx, "o1", metadata.KeyShowerName, metadata.String("Sporadic"), "u", 1000))

	obs, err := a.GetObservation(ctx, "o1")
	require.NoError(t, err)
	name, _ := obs.Metadata.String(metadata.KeyShowerName)
	assert.Equal(t, "Sporadic", name)
	require.Len(t, obs.Files, 1)

	withShower, err := a.SearchObservations(ctx, Query{HasKey: metadata.KeyShowerName})
	require.NoError(t, err)
	assert.Len(t, withShower, 1)

	n, err := a.DeleteObservationMetadata(ctx, Query{TimeMin: 0, TimeMax: 2000}, metadata.StageKeys(metadata.NamespaceShower))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, a.SetFileMetadata(ctx, "f2", "custom:note", metadata.String("x"), "u", 1010))
	f, err := a.GetFile(ctx, "f2")
	require.NoError(t, err)
	note, _ := f.Metadata.String("custom:note")
	assert.Equal(t, "x", note)

	err = a.SetObservationMetadata(ctx, "nope", metadata.KeyShowerName, metadata.String("x"), "u", 0)
	assert.True(t, errors.IsNotFound(err))
	err = a.SetObservationMetadata(ctx, "o1", metadata.KeyShowerName, metadata.Value{}, "u", 0)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestTransactionRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	seedObservatory(t, a, "cam1", 52.2, 0.12)
	require.NoError(t, a.CreateObservation(ctx, Observation{PublicID: "o1", ObservatoryID: "cam1", Time: 1, Type: metadata.ObservationTypeMovingObject}))

	boom := errors.NewStd("boom")
	err := a.Transaction(ctx, func(tx *Archive) error {
		require.NoError(t, tx.SetObservationMetadata(ctx, "o1", metadata.KeySatelliteName, metadata.String("ISS"), "u", 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	obs, err := a.GetObservation(ctx, "o1")
	require.NoError(t, err)
	_, ok := obs.Metadata[metadata.KeySatelliteName]
	assert.False(t, ok)
}

func TestGroups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	seedObservatory(t, a, "cam1", 52.2, 0.12)
	seedObservatory(t, a, "cam2", 52.3, 0.12)
	for _, o := range []Observation{
		{PublicID: "a", ObservatoryID: "cam1", Time: 100, Type: metadata.ObservationTypeMovingObject},
		{PublicID: "b", ObservatoryID: "cam2", Time: 101, Type: metadata.ObservationTypeMovingObject},
	} {
		require.NoError(t, a.CreateObservation(ctx, o))
	}

	g := Group{PublicID: "g1", SemanticType: metadata.SemanticTypeSimultaneous, Time: 100, Members: []string{"b", "a"}}
	require.NoError(t, a.CreateGroup(ctx, g, "u", 5))
	require.NoError(t, a.SetGroupMetadata(ctx, "g1", metadata.KeyTriangulationSpeed, metadata.Float(8000), "u", 100))

	got, err := a.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got.Members)
	speed, _ := got.Metadata.Float(metadata.KeyTriangulationSpeed)
	assert.InDelta(t, 8000, speed, 0)

	groups, err := a.SearchGroups(ctx, metadata.SemanticTypeSimultaneous, 0, 200)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	err = a.CreateGroup(ctx, Group{PublicID: "g2", SemanticType: metadata.SemanticTypeSimultaneous, Members: []string{"zz"}}, "u", 5)
	assert.True(t, errors.IsNotFound(err))

	n, err := a.DeleteGroupsInWindow(ctx, metadata.SemanticTypeSimultaneous, 0, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = a.GetGroup(ctx, "g1")
	assert.True(t, errors.IsNotFound(err))
}

func TestSatelliteCandidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)

	day := 86400.0
	decayed := 50 * day
	rows := []*SatelliteElements{
		{NoradID: 25544, Name: "ISS (ZARYA)", Epoch: 98 * day, MeanMotion: 15.5},
		{NoradID: 25544, Name: "ISS (ZARYA)", Epoch: 100.5 * day, MeanMotion: 15.5},
		{NoradID: 1, Name: "DEBRIS", Epoch: 100 * day, Debris: true},
		{NoradID: 2, Name: "DECAYED", Epoch: 99 * day, DecayDate: &decayed},
		{NoradID: 3, Name: "STALE", Epoch: 80 * day},
	}
	n, err := a.ImportSatellites(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Re-importing replaces rather than duplicates.
	_, err = a.ImportSatellites(ctx, rows[:1])
	require.NoError(t, err)
	count, err := a.SatelliteCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	got, err := a.SatelliteCandidates(ctx, 101*day, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25544, got[0].NoradID)
	assert.InDelta(t, 100.5*day, got[0].Epoch, 0)
}
