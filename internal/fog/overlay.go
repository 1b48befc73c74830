package fog

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// Stacking order of map layers. Fog sits over tiles and markers but under
// controls, popups and panels.
const (
	TileZIndex   = 200
	FogZIndex    = 500
	ChromeZIndex = 800
)

const viewportEpsilon = 1e-9

// Layer is a raster composited onto the map container.
type Layer struct {
	Name        string
	Image       *image.NRGBA
	Origin      image.Point // top-left corner within the container
	ZIndex      int
	Interactive bool // false: pointer events pass through to the map
}

// Surface is the map container layers are mounted on.
type Surface interface {
	AttachLayer(l *Layer) error
	DetachLayer(l *Layer)
	// Present tells the surface the layer's Image was redrawn.
	Present(l *Layer)
}

// Map is what the overlay needs from a map backend.
type Map interface {
	Viewport() (ViewportState, error)
	// OnViewportChange registers fn for pan, zoom and resize events and
	// returns a function that removes it.
	OnViewportChange(fn func()) (unsubscribe func())
	Surface() Surface
}

// PointSource supplies the visited locations to reveal. Each call returns a
// fresh snapshot.
type PointSource interface {
	RevealPoints() []domain.GeoPoint
}

// StaticPoints is a fixed PointSource.
type StaticPoints []domain.GeoPoint

func (s StaticPoints) RevealPoints() []domain.GeoPoint { return s }

// PointSourceFunc adapts a function to PointSource.
type PointSourceFunc func() []domain.GeoPoint

func (f PointSourceFunc) RevealPoints() []domain.GeoPoint { return f() }

type viewportKey struct {
	w, h     int
	zoom     float64
	lat, lon float64
}

func keyOf(vp ViewportState) viewportKey {
	return viewportKey{w: vp.Width, h: vp.Height, zoom: vp.Zoom, lat: vp.Center.Lat, lon: vp.Center.Lon}
}

func (k viewportKey) near(o viewportKey) bool {
	return k.w == o.w && k.h == o.h &&
		math.Abs(k.zoom-o.zoom) <= viewportEpsilon &&
		math.Abs(k.lat-o.lat) <= viewportEpsilon &&
		math.Abs(k.lon-o.lon) <= viewportEpsilon
}

// Overlay is a fog layer attached to a live map.
type Overlay struct {
	mu       sync.Mutex
	m        Map
	surface  Surface
	points   PointSource
	renderer *Renderer
	log      *slog.Logger

	opts        Options
	layer       *Layer
	canvas      *image.NRGBA
	last        viewportKey
	drawn       bool
	unsubscribe func()
	detached    bool
}

// Attach mounts a fog layer on m, subscribes it to viewport changes and
// draws the first frame.
func Attach(m Map, points PointSource, opts Options, log *slog.Logger) (*Overlay, error) {
	if m == nil {
		return nil, ErrProviderUnavailable
	}
	surface := m.Surface()
	if surface == nil {
		return nil, ErrProviderUnavailable
	}
	if points == nil {
		return nil, ErrNoPointSource
	}
	if log == nil {
		log = slog.Default()
	}

	o := &Overlay{
		m:        m,
		surface:  surface,
		points:   points,
		renderer: NewRenderer(log),
		log:      log,
		opts:     opts,
		layer:    &Layer{Name: "fog", ZIndex: FogZIndex},
	}
	if err := surface.AttachLayer(o.layer); err != nil {
		return nil, fmt.Errorf("attach fog layer: %w", err)
	}

	o.mu.Lock()
	o.unsubscribe = m.OnViewportChange(o.onViewportChange)
	o.redrawLocked(true)
	o.mu.Unlock()

	return o, nil
}

// Layer returns the mounted layer.
func (o *Overlay) Layer() *Layer { return o.layer }

// Options returns the current render options.
func (o *Overlay) Options() Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

func (o *Overlay) onViewportChange() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.redrawLocked(false)
}

// Refresh redraws with a fresh read of the visited locations even if the
// viewport has not moved.
func (o *Overlay) Refresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.redrawLocked(true)
}

// UpdateOptions replaces the render options and redraws.
func (o *Overlay) UpdateOptions(opts Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
	o.redrawLocked(true)
}

// Detach unsubscribes from the map, unmounts the layer and releases the
// canvas. Further calls on the overlay do nothing.
func (o *Overlay) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.detached {
		return
	}
	o.detached = true
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.surface.DetachLayer(o.layer)
	o.layer.Image = nil
	o.canvas = nil
}

// Detached reports whether Detach has run.
func (o *Overlay) Detached() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detached
}

// Detach removes an overlay from its map.
func Detach(o *Overlay) {
	if o != nil {
		o.Detach()
	}
}

// UpdateOptions changes an attached overlay's options at runtime.
func UpdateOptions(o *Overlay, opts Options) {
	if o != nil {
		o.UpdateOptions(opts)
	}
}

func (o *Overlay) redrawLocked(force bool) {
	if o.detached {
		return
	}
	vp, err := o.m.Viewport()
	if err != nil {
		o.log.Warn("fog: viewport unavailable", "error", err)
		return
	}

	key := keyOf(vp)
	if !force && o.drawn && key.near(o.last) {
		return
	}
	o.last, o.drawn = key, true

	if vp.Width <= 0 || vp.Height <= 0 {
		o.canvas = nil
		o.layer.Image = image.NewNRGBA(image.Rectangle{})
		return
	}

	if o.canvas == nil || o.canvas.Rect.Dx() != vp.Width || o.canvas.Rect.Dy() != vp.Height {
		o.canvas = image.NewNRGBA(image.Rect(0, 0, vp.Width, vp.Height))
	}
	o.renderer.renderInto(o.canvas, vp, RevealsFromPoints(o.points.RevealPoints()), o.opts)

	o.layer.Image = o.canvas
	o.layer.Origin = image.Point{}
	o.surface.Present(o.layer)
}
