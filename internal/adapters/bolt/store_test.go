package boltadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cafelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCafeRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Cafes()
	visit := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	c := &domain.Cafe{
		ID:        "c1",
		Name:      "Simple Kaffa",
		Location:  &domain.GeoPoint{Lat: 25.0442, Lon: 121.5293},
		Rating:    5,
		VisitDate: &visit,
		Tags:      []string{"pour-over"},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.Error(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Simple Kaffa", got.Name)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 25.0442, got.Location.Lat, 1e-12)
	require.NotNil(t, got.VisitDate)
	assert.True(t, visit.Equal(*got.VisitDate))
	assert.Equal(t, []string{"pour-over"}, got.Tags)

	got.Notes = "great"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "great", got.Notes)

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.GetByID(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "c1"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Cafe{ID: "zz"}), domain.ErrNotFound)
}

func TestCafeRepo_ListAndVisited(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Cafes()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range []domain.Cafe{
		{ID: "a", Name: "Fika Fika", Address: "Yitong Park", Location: &domain.GeoPoint{Lat: 25.05, Lon: 121.52}},
		{ID: "b", Name: "Wish Café", Wishlist: true, Location: &domain.GeoPoint{Lat: 25.06, Lon: 121.53}},
		{ID: "c", Name: "No Coords", Address: "Da'an"},
	} {
		c.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, &c))
	}

	all, err := repo.List(ctx, domain.CafeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	hits, err := repo.List(ctx, domain.CafeFilter{Query: "PARK"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)

	yes := true
	wish, err := repo.List(ctx, domain.CafeFilter{Wishlist: &yes})
	require.NoError(t, err)
	require.Len(t, wish, 1)
	assert.Equal(t, "b", wish[0].ID)

	pts, err := repo.VisitedLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GeoPoint{{Lat: 25.05, Lon: 121.52}}, pts)
}

func TestPhotoRepo(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Photos()

	for _, p := range []domain.Photo{
		{ID: "p1", CafeID: "c1", Kind: domain.PhotoKindPhoto, Data: []byte{1, 2, 3}},
		{ID: "p2", CafeID: "c1", Kind: domain.PhotoKindMenu, Data: []byte{4}},
		{ID: "p3", CafeID: "c10", Kind: domain.PhotoKindPhoto, Data: []byte{5}},
	} {
		require.NoError(t, repo.Save(ctx, &p))
	}

	got, err := repo.GetByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, domain.PhotoKindMenu, got.Kind)
	assert.Equal(t, []byte{4}, got.Data)

	require.NoError(t, repo.Delete(ctx, "p1"))
	assert.ErrorIs(t, repo.Delete(ctx, "p1"), domain.ErrNotFound)

	require.NoError(t, repo.DeleteByCafe(ctx, "c1"))
	_, err = repo.GetByID(ctx, "p2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// "c10" shares a prefix with "c1" but is a different café.
	_, err = repo.GetByID(ctx, "p3")
	assert.NoError(t, err)
}
