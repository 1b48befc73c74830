package fog

import (
	"bytes"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

var taipei = domain.GeoPoint{Lat: 25.0330, Lon: 121.5654}

func quietRenderer() *Renderer {
	return NewRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustViewport(t *testing.T, center domain.GeoPoint, zoom float64, w, h int) ViewportState {
	t.Helper()
	vp, err := NewWebMercatorViewport(center, zoom, w, h)
	require.NoError(t, err)
	return vp
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.NRGBAAt(x, y).A
}

func fogAlpha(opacity float64) uint8 {
	return uint8(math.Round(opacity * 255))
}

func TestFalloff(t *testing.T) {
	assert.Equal(t, 0.0, Falloff(0))
	assert.Equal(t, 0.0, Falloff(-1))
	assert.InDelta(t, 0.4, Falloff(0.35), 1e-12)
	assert.InDelta(t, 0.8, Falloff(0.7), 1e-12)
	assert.InDelta(t, 0.9, Falloff(0.85), 1e-12)
	assert.Equal(t, 1.0, Falloff(1))
	assert.Equal(t, 1.0, Falloff(3))
}

func TestRender_NoRevealsIsUniformFog(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 400, 400)
	img := quietRenderer().Render(vp, nil, Options{FogOpacity: Opacity(0.5)})

	require.Equal(t, image.Rect(0, 0, 400, 400), img.Bounds())
	want := fogAlpha(0.5)
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			c := img.NRGBAAt(x, y)
			if c.A != want || c.R != FogGrey || c.G != FogGrey || c.B != FogGrey {
				t.Fatalf("pixel (%d,%d) = %+v, want grey alpha %d", x, y, c, want)
			}
		}
	}
}

func TestRender_DefaultOpacity(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 10, 10)
	img := quietRenderer().Render(vp, nil, Options{})
	assert.Equal(t, fogAlpha(DefaultFogOpacity), alphaAt(img, 5, 5))
}

func TestRender_OpacityClamped(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 4, 4)
	r := quietRenderer()
	assert.Equal(t, uint8(255), alphaAt(r.Render(vp, nil, Options{FogOpacity: Opacity(1.7)}), 0, 0))
	assert.Equal(t, uint8(0), alphaAt(r.Render(vp, nil, Options{FogOpacity: Opacity(-0.3)}), 0, 0))
}

func TestRender_ZeroSizedViewport(t *testing.T) {
	r := quietRenderer()
	for _, size := range [][2]int{{0, 600}, {800, 0}, {-5, 10}} {
		vp := mustViewport(t, taipei, 15, size[0], size[1])
		img := r.Render(vp, []RevealSpec{{Center: taipei}}, Options{})
		assert.True(t, img.Bounds().Empty(), "size %v", size)
	}
}

func TestRender_CentreClearAndEdgeFogged(t *testing.T) {
	const radius = 200.0
	vp := mustViewport(t, taipei, 15, 800, 600)
	img := quietRenderer().Render(vp, []RevealSpec{{Center: taipei, RadiusMeters: radius}}, Options{FogOpacity: Opacity(0.8)})

	c, err := vp.Project(taipei)
	require.NoError(t, err)
	assert.Equal(t, PixelPoint{X: 400, Y: 300}, c)
	assert.Equal(t, uint8(0), alphaAt(img, 400, 300))

	px, err := MetersToPixels(vp.Project, taipei, c, radius)
	require.NoError(t, err)
	edge := int(math.Ceil(px))
	assert.Equal(t, fogAlpha(0.8), alphaAt(img, 400+edge, 300))
	assert.Equal(t, fogAlpha(0.8), alphaAt(img, 400, 300-edge))
	assert.Equal(t, fogAlpha(0.8), alphaAt(img, 0, 0))

	// 70% of the radius keeps about 80% of the fog.
	inner := int(math.Round(px * innerStop))
	assert.InDelta(t, 0.8*0.8*255, float64(alphaAt(img, 400+inner, 300)), 3)
}

func TestRender_ScenarioZoom15(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 800, 600)
	img := quietRenderer().Render(vp, []RevealSpec{{Center: taipei, RadiusMeters: 200}}, Options{FogOpacity: Opacity(0.8)})

	assert.Equal(t, uint8(0), alphaAt(img, 400, 300))

	off := int(math.Ceil(210 / GroundResolution(taipei.Lat, 15)))
	assert.Equal(t, fogAlpha(0.8), alphaAt(img, 400, 300+off))
	assert.Equal(t, fogAlpha(0.8), alphaAt(img, 400, 300-off))
}

func TestRender_Idempotent(t *testing.T) {
	vp := mustViewport(t, taipei, 16, 320, 240)
	reveals := []RevealSpec{
		{Center: taipei},
		{Center: domain.GeoPoint{Lat: 25.0345, Lon: 121.5670}, RadiusMeters: 120},
	}
	r := quietRenderer()
	for _, grain := range []bool{false, true} {
		opts := Options{FogOpacity: Opacity(0.7), Grain: grain}
		a := r.Render(vp, reveals, opts)
		b := r.Render(vp, reveals, opts)
		assert.True(t, bytes.Equal(a.Pix, b.Pix), "grain=%v", grain)
	}
}

func TestRender_DoesNotMutateInputs(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 100, 100)
	reveals := []RevealSpec{{Center: taipei}, {Center: domain.GeoPoint{Lat: 25.04, Lon: 121.57}, RadiusMeters: 50}}
	before := append([]RevealSpec(nil), reveals...)

	quietRenderer().Render(vp, reveals, Options{})
	assert.Equal(t, before, reveals)
	assert.Equal(t, 100, vp.Width)
}

func TestRender_MonotonicFalloff(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 400, 400)
	img := quietRenderer().Render(vp, []RevealSpec{{Center: taipei, RadiusMeters: 300}}, Options{})
	c, _ := vp.Project(taipei)
	px, err := MetersToPixels(vp.Project, taipei, c, 300)
	require.NoError(t, err)

	for _, dir := range [][2]float64{{1, 0}, {0, -1}, {0.6, 0.8}, {-0.8, 0.6}} {
		prev := uint8(0)
		for d := 0.0; d <= px; d++ {
			x := int(math.Round(c.X + dir[0]*d))
			y := int(math.Round(c.Y + dir[1]*d))
			a := alphaAt(img, x, y)
			// rounding to the pixel grid may wobble by one step
			if int(a)+1 < int(prev) {
				t.Fatalf("alpha decreased along %v at d=%.0f: %d after %d", dir, d, a, prev)
			}
			if a > prev {
				prev = a
			}
		}
	}
}

func TestRender_OverlapNeverRefogs(t *testing.T) {
	vp := mustViewport(t, taipei, 16, 300, 300)
	a := RevealSpec{Center: taipei, RadiusMeters: 150}
	b := RevealSpec{Center: domain.GeoPoint{Lat: 25.0338, Lon: 121.5662}, RadiusMeters: 150}
	r := quietRenderer()

	onlyA := r.Render(vp, []RevealSpec{a}, Options{})
	onlyB := r.Render(vp, []RevealSpec{b}, Options{})
	both := r.Render(vp, []RevealSpec{a, b}, Options{})

	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			u := alphaAt(both, x, y)
			if u > alphaAt(onlyA, x, y) || u > alphaAt(onlyB, x, y) {
				t.Fatalf("pixel (%d,%d) union alpha %d exceeds a single hole", x, y, u)
			}
		}
	}
}

func TestRender_SkipsBadProjection(t *testing.T) {
	good := taipei
	bad := domain.GeoPoint{Lat: 10, Lon: 10}
	panicky := domain.GeoPoint{Lat: 20, Lon: 20}
	nonFinite := domain.GeoPoint{Lat: 30, Lon: 30}

	base := mustViewport(t, taipei, 15, 200, 200)
	vp := base
	vp.Project = func(p domain.GeoPoint) (PixelPoint, error) {
		switch {
		case p.Lat == bad.Lat:
			return PixelPoint{}, errors.New("boom")
		case p.Lat == panicky.Lat:
			panic("projection exploded")
		case p.Lat == nonFinite.Lat:
			return PixelPoint{X: math.NaN(), Y: math.Inf(1)}, nil
		}
		return base.Project(p)
	}

	img, st := quietRenderer().RenderWithStats(vp,
		[]RevealSpec{{Center: bad}, {Center: good}, {Center: panicky}, {Center: nonFinite}}, Options{})

	assert.Equal(t, Stats{Drawn: 1, Skipped: 3}, st)
	assert.Equal(t, uint8(0), alphaAt(img, 100, 100))
	assert.Equal(t, fogAlpha(DefaultFogOpacity), alphaAt(img, 0, 0))
}

func TestRender_SkipLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(slog.New(slog.NewTextHandler(&buf, nil)))
	vp := mustViewport(t, taipei, 15, 50, 50)
	vp.Project = func(domain.GeoPoint) (PixelPoint, error) { return PixelPoint{}, errors.New("no") }

	r.Render(vp, []RevealSpec{{Center: taipei}}, Options{})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "skipping reveal")
}

func TestRender_OffscreenRevealReachesIntoView(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 200, 200)
	c, _ := vp.Project(taipei)
	px, _ := MetersToPixels(vp.Project, taipei, c, 400)

	// Centre 20px left of the viewport, radius well over 20px.
	shifted := vp
	shifted.Project = func(p domain.GeoPoint) (PixelPoint, error) {
		pt, err := vp.Project(p)
		pt.X -= c.X + 20
		return pt, err
	}
	img := quietRenderer().Render(shifted, []RevealSpec{{Center: taipei, RadiusMeters: 400}}, Options{})
	require.Greater(t, px, 40.0)
	assert.Less(t, alphaAt(img, 0, int(c.Y)), fogAlpha(DefaultFogOpacity))
}

func TestRender_GrainKeepsAlpha(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 64, 64)
	plain := quietRenderer().Render(vp, []RevealSpec{{Center: taipei}}, Options{})
	grainy := quietRenderer().Render(vp, []RevealSpec{{Center: taipei}}, Options{Grain: true})

	varied := false
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			g := grainy.NRGBAAt(x, y)
			require.Equal(t, alphaAt(plain, x, y), g.A)
			require.InDelta(t, FogGrey, int(g.R), grainAmplitude)
			if g.R != FogGrey {
				varied = true
			}
		}
	}
	assert.True(t, varied, "grain should perturb the colour")
}

func TestRender_RevealUsesOwnRadius(t *testing.T) {
	vp := mustViewport(t, taipei, 15, 400, 400)
	r := quietRenderer()
	small := r.Render(vp, []RevealSpec{{Center: taipei, RadiusMeters: 50}}, Options{DefaultRadiusMeters: 400})
	def := r.Render(vp, []RevealSpec{{Center: taipei}}, Options{DefaultRadiusMeters: 400})

	probe := 200 + int(math.Ceil(60/GroundResolution(taipei.Lat, 15)))
	assert.Equal(t, fogAlpha(DefaultFogOpacity), alphaAt(small, probe, 200))
	assert.Less(t, alphaAt(def, probe, 200), fogAlpha(DefaultFogOpacity))
}
