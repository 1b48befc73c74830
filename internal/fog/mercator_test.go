package fog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

func TestWebMercator_CentreIsViewportMiddle(t *testing.T) {
	vp, err := NewWebMercatorViewport(taipei, 13.5, 801, 600)
	require.NoError(t, err)
	p, err := vp.Project(taipei)
	require.NoError(t, err)
	assert.InDelta(t, 400.5, p.X, 1e-6)
	assert.InDelta(t, 300, p.Y, 1e-6)
}

func TestWebMercator_NorthIsUpEastIsRight(t *testing.T) {
	vp, err := NewWebMercatorViewport(taipei, 15, 800, 600)
	require.NoError(t, err)
	north, _ := vp.Project(domain.GeoPoint{Lat: taipei.Lat + 0.001, Lon: taipei.Lon})
	east, _ := vp.Project(domain.GeoPoint{Lat: taipei.Lat, Lon: taipei.Lon + 0.001})
	assert.Less(t, north.Y, 300.0)
	assert.Greater(t, east.X, 400.0)
}

func TestWebMercator_ZoomDoublesScale(t *testing.T) {
	other := domain.GeoPoint{Lat: 25.04, Lon: 121.57}
	vp14, _ := NewWebMercatorViewport(taipei, 14, 800, 600)
	vp15, _ := NewWebMercatorViewport(taipei, 15, 800, 600)
	a, _ := vp14.Project(other)
	b, _ := vp15.Project(other)
	assert.InDelta(t, 2*(a.X-400), b.X-400, 1e-6)
	assert.InDelta(t, 2*(a.Y-300), b.Y-300, 1e-6)
}

func TestWebMercator_MetersToPixelsMatchesGroundResolution(t *testing.T) {
	for _, lat := range []float64{0, 25.033, 52.5, 70} {
		center := domain.GeoPoint{Lat: lat, Lon: 10}
		vp, err := NewWebMercatorViewport(center, 15, 800, 600)
		require.NoError(t, err)
		c, _ := vp.Project(center)
		px, err := MetersToPixels(vp.Project, center, c, 200)
		require.NoError(t, err)
		want := 200 / GroundResolution(lat, 15)
		assert.InDelta(t, want, px, want*0.01, "lat %v", lat)
	}
}

func TestWebMercator_RejectsInvalid(t *testing.T) {
	_, err := NewWebMercatorViewport(domain.GeoPoint{Lat: 95, Lon: 0}, 10, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidViewport)
	_, err = NewWebMercatorViewport(taipei, math.NaN(), 10, 10)
	assert.ErrorIs(t, err, ErrInvalidViewport)
	_, err = NewWebMercatorViewport(taipei, 30, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidViewport)

	vp, err := NewWebMercatorViewport(taipei, 10, 10, 10)
	require.NoError(t, err)
	_, err = vp.Project(domain.GeoPoint{Lat: math.NaN(), Lon: 0})
	assert.Error(t, err)
}

func TestMetersToPixels_NearPoleFlipsSouth(t *testing.T) {
	center := domain.GeoPoint{Lat: 89.9999, Lon: 0}
	project := func(p domain.GeoPoint) (PixelPoint, error) {
		return PixelPoint{X: p.Lon, Y: -p.Lat * 1000}, nil
	}
	c, _ := project(center)
	px, err := MetersToPixels(project, center, c, 1000)
	require.NoError(t, err)
	assert.Greater(t, px, 0.0)
}
