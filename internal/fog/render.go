package fog

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/pkg/geospatial"
)

// Gradient stops of the reveal hole, as (fraction of radius, fraction of fog).
const (
	innerStop      = 0.7
	innerStopFog   = 0.8
	grainAmplitude = 10
)

// Falloff returns the share of fog left at distance t (in radii) from a reveal
// centre: 0 at the centre, 0.8 at 0.7 radii, 1 at and beyond the radius.
func Falloff(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t < innerStop:
		return innerStopFog * t / innerStop
	case t < 1:
		return innerStopFog + (1-innerStopFog)*(t-innerStop)/(1-innerStop)
	default:
		return 1
	}
}

// Stats describes what a render did.
type Stats struct {
	Drawn   int
	Skipped int
}

// Renderer rasterises fog overlays. It holds no per-frame state and is safe
// for concurrent use.
type Renderer struct {
	log *slog.Logger
}

// NewRenderer creates a Renderer. A nil logger uses slog.Default().
func NewRenderer(log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{log: log}
}

// Render draws the fog for vp with a hole at every reveal. The result is
// exactly Width x Height; a viewport without area yields an empty image.
func (r *Renderer) Render(vp ViewportState, reveals []RevealSpec, opts Options) *image.NRGBA {
	img, _ := r.RenderWithStats(vp, reveals, opts)
	return img
}

// RenderWithStats is Render that also reports drawn and skipped reveals.
func (r *Renderer) RenderWithStats(vp ViewportState, reveals []RevealSpec, opts Options) (*image.NRGBA, Stats) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return image.NewNRGBA(image.Rectangle{}), Stats{}
	}
	img := image.NewNRGBA(image.Rect(0, 0, vp.Width, vp.Height))
	st := r.renderInto(img, vp, reveals, opts)
	return img, st
}

// renderInto overwrites every pixel of img, which must match vp's size.
func (r *Renderer) renderInto(img *image.NRGBA, vp ViewportState, reveals []RevealSpec, opts Options) Stats {
	o := opts.resolve()
	w, h := vp.Width, vp.Height

	remaining := make([]float64, w*h)
	for i := range remaining {
		remaining[i] = 1
	}

	var st Stats
	for _, rv := range reveals {
		radius := rv.RadiusMeters
		if radius <= 0 {
			radius = o.radius
		}
		c, px, err := r.locate(vp, rv.Center, radius)
		if err != nil {
			st.Skipped++
			r.log.Warn("fog: skipping reveal",
				"lat", rv.Center.Lat, "lon", rv.Center.Lon, "radius_m", radius, "error", err)
			continue
		}
		punch(remaining, w, h, c, px)
		st.Drawn++
	}

	var rng *rand.Rand
	if o.grain {
		rng = rand.New(rand.NewPCG(uint64(w), uint64(h)))
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			grey := uint8(FogGrey)
			if rng != nil {
				grey = uint8(FogGrey + rng.IntN(2*grainAmplitude+1) - grainAmplitude)
			}
			a := o.opacity * remaining[y*w+x]
			i := x * 4
			row[i] = grey
			row[i+1] = grey
			row[i+2] = grey
			row[i+3] = uint8(math.Round(a * 255))
		}
	}
	return st
}

// locate projects a reveal centre and converts its radius to pixels.
func (r *Renderer) locate(vp ViewportState, center domain.GeoPoint, radiusMeters float64) (PixelPoint, float64, error) {
	if vp.Project == nil {
		return PixelPoint{}, 0, fmt.Errorf("viewport has no projection")
	}
	c, err := safeProject(vp.Project, center)
	if err != nil {
		return PixelPoint{}, 0, err
	}
	px, err := MetersToPixels(vp.Project, center, c, radiusMeters)
	if err != nil {
		return PixelPoint{}, 0, err
	}
	return c, px, nil
}

// MetersToPixels measures how many pixels radiusMeters spans at center by
// projecting a second point that many meters due north (south near the pole).
// centerPx must be the projection of center.
func MetersToPixels(project ProjectFunc, center domain.GeoPoint, centerPx PixelPoint, radiusMeters float64) (float64, error) {
	dLat := geospatial.MetersToLatDegrees(radiusMeters)
	edge := domain.GeoPoint{Lat: center.Lat + dLat, Lon: center.Lon}
	if edge.Lat > 90 {
		edge.Lat = center.Lat - dLat
	}
	if edge.Lat < -90 {
		return 0, fmt.Errorf("radius %.0fm spans more than the globe", radiusMeters)
	}

	e, err := safeProject(project, edge)
	if err != nil {
		return 0, err
	}
	px := math.Hypot(e.X-centerPx.X, e.Y-centerPx.Y)
	if math.IsNaN(px) || math.IsInf(px, 0) || px <= 0 {
		return 0, fmt.Errorf("unusable pixel radius %v", px)
	}
	return px, nil
}

// safeProject calls a host-supplied projection, turning panics and
// non-finite output into errors.
func safeProject(project ProjectFunc, p domain.GeoPoint) (pt PixelPoint, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("projection panicked: %v", rec)
		}
	}()
	pt, err = project(p)
	if err != nil {
		return PixelPoint{}, fmt.Errorf("project: %w", err)
	}
	if !pt.finite() {
		return PixelPoint{}, fmt.Errorf("projection returned non-finite point (%v, %v)", pt.X, pt.Y)
	}
	return pt, nil
}

// punch multiplies the falloff of one hole into remaining.
func punch(remaining []float64, w, h int, c PixelPoint, radius float64) {
	if c.X+radius < 0 || c.Y+radius < 0 || c.X-radius > float64(w-1) || c.Y-radius > float64(h-1) {
		return
	}
	minX := int(math.Max(0, math.Floor(c.X-radius)))
	maxX := int(math.Min(float64(w-1), math.Ceil(c.X+radius)))
	minY := int(math.Max(0, math.Floor(c.Y-radius)))
	maxY := int(math.Min(float64(h-1), math.Ceil(c.Y+radius)))

	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - c.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - c.X
			d2 := dx*dx + dy*dy
			if d2 >= r2 {
				continue
			}
			remaining[y*w+x] *= Falloff(math.Sqrt(d2) / radius)
		}
	}
}
