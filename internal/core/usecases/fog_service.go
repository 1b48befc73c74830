package usecases

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/fog"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
	"github.com/samirrijal/cafelog/internal/pkg/telemetry"
)

const tracerName = "github.com/samirrijal/cafelog/fog"

// VisitedLocator lists the locations the fog is cleared around.
type VisitedLocator interface {
	VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error)
}

// FogSettings are the service-wide fog defaults and limits.
type FogSettings struct {
	Opacity      float64
	RadiusMeters float64
	Grain        bool
	MaxWidth     int
	MaxHeight    int
	CacheTTLSecs int
}

// FogRequest describes one fog image. Nil or zero options fall back to the
// service defaults.
type FogRequest struct {
	Center       domain.GeoPoint
	Zoom         float64
	Width        int
	Height       int
	Opacity      *float64
	RadiusMeters float64
	Grain        *bool
}

// FogService renders the fog over the current visited set.
type FogService struct {
	points   VisitedLocator
	cache    ports.CacheService
	renderer *fog.Renderer
	settings FogSettings
	log      *slog.Logger
}

// NewFogService creates a new FogService. cache may be nil.
func NewFogService(points VisitedLocator, cache ports.CacheService, settings FogSettings, log *slog.Logger) *FogService {
	if log == nil {
		log = slog.Default()
	}
	// A service-wide opacity of zero would hide the fog entirely; requests
	// can still ask for it explicitly.
	if settings.Opacity <= 0 || settings.Opacity > 1 {
		settings.Opacity = fog.DefaultFogOpacity
	}
	if settings.MaxWidth <= 0 {
		settings.MaxWidth = 4096
	}
	if settings.MaxHeight <= 0 {
		settings.MaxHeight = 4096
	}
	return &FogService{
		points:   points,
		cache:    cache,
		renderer: fog.NewRenderer(log),
		settings: settings,
		log:      log,
	}
}

// Defaults returns the render options used when a caller sets none.
func (s *FogService) Defaults() fog.Options {
	return fog.Options{
		FogOpacity:          fog.Opacity(s.settings.Opacity),
		DefaultRadiusMeters: s.settings.RadiusMeters,
		Grain:               s.settings.Grain,
	}
}

// Options merges a request's overrides into the defaults.
func (s *FogService) Options(opacity *float64, radiusMeters float64, grain *bool) fog.Options {
	opts := s.Defaults()
	if opacity != nil {
		opts.FogOpacity = fog.Opacity(*opacity)
	}
	if radiusMeters > 0 {
		opts.DefaultRadiusMeters = radiusMeters
	}
	if grain != nil {
		opts.Grain = *grain
	}
	return opts
}

// Renderer returns the shared renderer.
func (s *FogService) Renderer() *fog.Renderer { return s.renderer }

// Points returns the current reveal points.
func (s *FogService) Points(ctx context.Context) ([]domain.GeoPoint, error) {
	return s.points.VisitedLocations(ctx)
}

// Validate checks a request against the service limits.
func (s *FogService) Validate(req FogRequest) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", domain.ErrInvalidInput)
	}
	if req.Width > s.settings.MaxWidth || req.Height > s.settings.MaxHeight {
		return fmt.Errorf("%w: viewport larger than %dx%d", domain.ErrInvalidInput, s.settings.MaxWidth, s.settings.MaxHeight)
	}
	if req.Opacity != nil && (math.IsNaN(*req.Opacity) || *req.Opacity < 0 || *req.Opacity > 1) {
		return fmt.Errorf("%w: opacity must be within [0,1]", domain.ErrInvalidInput)
	}
	if math.IsNaN(req.RadiusMeters) || math.IsInf(req.RadiusMeters, 0) || req.RadiusMeters < 0 {
		return fmt.Errorf("%w: radius must be a non-negative number", domain.ErrInvalidInput)
	}
	return nil
}

// Render draws the fog for a Web Mercator viewport.
func (s *FogService) Render(ctx context.Context, req FogRequest, source string) (*image.NRGBA, error) {
	pts, err := s.points.VisitedLocations(ctx)
	if err != nil {
		return nil, err
	}
	return s.draw(ctx, req, source, pts)
}

// draw renders req over exactly pts.
func (s *FogService) draw(ctx context.Context, req FogRequest, source string, pts []domain.GeoPoint) (*image.NRGBA, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "FogService.Render")
	defer span.End()
	span.SetAttributes(
		attribute.String("fog.source", source),
		attribute.Int("fog.width", req.Width),
		attribute.Int("fog.height", req.Height),
		attribute.Float64("fog.zoom", req.Zoom),
		attribute.Int("fog.points", len(pts)),
	)

	vp, err := fog.NewWebMercatorViewport(req.Center, req.Zoom, req.Width, req.Height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	start := time.Now()
	img, st := s.renderer.RenderWithStats(vp, fog.RevealsFromPoints(pts), s.Options(req.Opacity, req.RadiusMeters, req.Grain))
	metrics.FogRenderDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	metrics.FogRevealsSkipped.Add(float64(st.Skipped))
	span.SetAttributes(
		attribute.Int(telemetry.MetricFogRevealsDrawn, st.Drawn),
		attribute.Int64(telemetry.MetricFogRenderLatency, time.Since(start).Microseconds()),
	)
	return img, nil
}

// RenderPNG renders and PNG-encodes the fog, going through the cache when
// one is configured. The cache key covers the viewport, the effective options
// and the reveal set, so entries never outlive the data they were drawn from.
func (s *FogService) RenderPNG(ctx context.Context, req FogRequest) ([]byte, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	// One snapshot feeds both the cache key and the image.
	pts, err := s.points.VisitedLocations(ctx)
	if err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = s.cacheKey(req, pts)
		if data, err := s.cache.Get(ctx, key); err == nil && len(data) > 0 {
			metrics.CacheHits.WithLabelValues("fog_png").Inc()
			return data, nil
		}
		metrics.CacheMisses.WithLabelValues("fog_png").Inc()
	}

	img, err := s.draw(ctx, req, "http", pts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode fog png: %w", err)
	}

	if s.cache != nil {
		ttl := s.settings.CacheTTLSecs
		if ttl <= 0 {
			ttl = 60
		}
		_ = s.cache.Set(ctx, key, buf.Bytes(), ttl)
	}
	return buf.Bytes(), nil
}

func (s *FogService) cacheKey(req FogRequest, pts []domain.GeoPoint) string {
	opts := s.Options(req.Opacity, req.RadiusMeters, req.Grain)
	opacity, radius := opts.Resolved()

	h := sha256.New()
	var b [8]byte
	putF := func(v float64) {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		h.Write(b[:])
	}
	for _, p := range pts {
		putF(p.Lat)
		putF(p.Lon)
	}
	grain := 0
	if opts.Grain {
		grain = 1
	}
	return fmt.Sprintf("fog:png:%.6f:%.6f:%.2f:%dx%d:%.3f:%.0f:%d:%s",
		req.Center.Lat, req.Center.Lon, req.Zoom, req.Width, req.Height,
		opacity, radius, grain, hex.EncodeToString(h.Sum(nil))[:16])
}

// LivePoints is a fog.PointSource over the visited set for long-lived
// overlays. A failed lookup keeps the last good snapshot on screen.
func (s *FogService) LivePoints(ctx context.Context) fog.PointSource {
	var (
		mu   sync.Mutex
		last []domain.GeoPoint
	)
	return fog.PointSourceFunc(func() []domain.GeoPoint {
		pts, err := s.points.VisitedLocations(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.log.Warn("fog: visited locations unavailable, keeping last snapshot", "error", err)
			return last
		}
		last = pts
		return pts
	})
}
