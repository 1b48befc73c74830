// Package fog renders the fog-of-war overlay drawn over the café map: a
// uniform translucent grey layer with soft circular holes around every
// visited location.
//
// The renderer is a pure function of (viewport, reveals, options). Overlay
// ties it to a live map through the Map capability so it redraws whenever the
// viewport pans, zooms or resizes.
package fog

import (
	"errors"
	"math"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

const (
	DefaultFogOpacity   = 0.8
	DefaultRadiusMeters = 200.0

	// FogGrey is the RGB value of every fog pixel before grain is applied.
	FogGrey = 128
)

var (
	// ErrProviderUnavailable is returned by Attach when there is no map to attach to.
	ErrProviderUnavailable = errors.New("fog: map viewport provider unavailable")
	// ErrNoPointSource is returned by Attach without a visited-location source.
	ErrNoPointSource = errors.New("fog: no visited-location source")
	// ErrInvalidViewport is returned for non-finite centres or zoom levels.
	ErrInvalidViewport = errors.New("fog: invalid viewport")
)

// PixelPoint is a position in viewport pixels, origin at the top-left corner.
type PixelPoint struct {
	X, Y float64
}

func (p PixelPoint) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// ProjectFunc maps a coordinate to viewport pixels for the current pan/zoom.
type ProjectFunc func(domain.GeoPoint) (PixelPoint, error)

// ViewportState describes what the map currently shows. It is only valid
// for the draw call it was obtained for.
type ViewportState struct {
	Width   int
	Height  int
	Zoom    float64
	Center  domain.GeoPoint
	Project ProjectFunc
}

// RevealSpec is one hole in the fog. RadiusMeters <= 0 means use the
// renderer's default radius.
type RevealSpec struct {
	Center       domain.GeoPoint
	RadiusMeters float64
}

// RevealsFromPoints turns visited locations into reveals of the default radius.
func RevealsFromPoints(points []domain.GeoPoint) []RevealSpec {
	out := make([]RevealSpec, len(points))
	for i, p := range points {
		out[i] = RevealSpec{Center: p}
	}
	return out
}

// Options tune a render. The zero value renders with the defaults.
type Options struct {
	// FogOpacity is the alpha of untouched fog, clamped to [0,1].
	// Nil means DefaultFogOpacity so that an explicit 0 stays possible.
	FogOpacity *float64
	// DefaultRadiusMeters applies to reveals without their own radius.
	DefaultRadiusMeters float64
	// Grain adds a fixed per-pixel luminance noise to the fog colour.
	Grain bool
}

// Opacity returns a pointer for Options.FogOpacity.
func Opacity(v float64) *float64 { return &v }

// resolved is Options with defaults applied.
type resolved struct {
	opacity float64
	radius  float64
	grain   bool
}

func (o Options) resolve() resolved {
	r := resolved{opacity: DefaultFogOpacity, radius: o.DefaultRadiusMeters, grain: o.Grain}
	if o.FogOpacity != nil && !math.IsNaN(*o.FogOpacity) {
		r.opacity = math.Min(1, math.Max(0, *o.FogOpacity))
	}
	if r.radius <= 0 || math.IsNaN(r.radius) || math.IsInf(r.radius, 0) {
		r.radius = DefaultRadiusMeters
	}
	return r
}

// Resolved reports the opacity and default radius a render would use.
func (o Options) Resolved() (opacity, radiusMeters float64) {
	r := o.resolve()
	return r.opacity, r.radius
}
