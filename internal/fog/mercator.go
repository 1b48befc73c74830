package fog

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

const (
	// TileSize is the edge of a slippy-map tile in pixels.
	TileSize = 256
	// MaxLatitude is where square Web Mercator maps are cut off.
	MaxLatitude = 85.0511287798
	// MaxZoom bounds the zoom level accepted for Web Mercator viewports.
	MaxZoom = 24
)

// NewWebMercatorViewport builds the viewport of a standard web map (256px
// tiles, EPSG:3857) centred on center at the given zoom.
func NewWebMercatorViewport(center domain.GeoPoint, zoom float64, width, height int) (ViewportState, error) {
	if !center.Valid() {
		return ViewportState{}, fmt.Errorf("%w: centre %v,%v", ErrInvalidViewport, center.Lat, center.Lon)
	}
	if math.IsNaN(zoom) || zoom < 0 || zoom > MaxZoom {
		return ViewportState{}, fmt.Errorf("%w: zoom %v", ErrInvalidViewport, zoom)
	}

	scale := TileSize * math.Exp2(zoom)
	cx, cy := worldPixel(center, scale)
	halfW, halfH := float64(width)/2, float64(height)/2

	return ViewportState{
		Width:  width,
		Height: height,
		Zoom:   zoom,
		Center: center,
		Project: func(p domain.GeoPoint) (PixelPoint, error) {
			if !p.Valid() {
				return PixelPoint{}, fmt.Errorf("coordinate %v,%v out of range", p.Lat, p.Lon)
			}
			x, y := worldPixel(p, scale)
			return PixelPoint{X: x - cx + halfW, Y: y - cy + halfH}, nil
		},
	}, nil
}

// worldPixel returns p's position on the whole-world bitmap of the given size.
func worldPixel(p domain.GeoPoint, scale float64) (float64, float64) {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat))
	m := project.WGS84.ToMercator(orb.Point{p.Lon, lat})

	half := math.Pi * orb.EarthRadius
	x := (m[0] + half) / (2 * half) * scale
	y := (half - m[1]) / (2 * half) * scale
	return x, y
}

// GroundResolution is the number of meters one pixel covers at lat and zoom.
func GroundResolution(lat, zoom float64) float64 {
	return 2 * math.Pi * orb.EarthRadius * math.Cos(lat*math.Pi/180) / (TileSize * math.Exp2(zoom))
}
