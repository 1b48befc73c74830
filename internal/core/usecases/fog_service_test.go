package usecases_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/usecases"
)

type stubLocator struct {
	pts   []domain.GeoPoint
	err   error
	calls int
}

func (s *stubLocator) VisitedLocations(context.Context) ([]domain.GeoPoint, error) {
	s.calls++
	return s.pts, s.err
}

var taipei = domain.GeoPoint{Lat: 25.033, Lon: 121.5654}

func fogRequest(w, h int) usecases.FogRequest {
	return usecases.FogRequest{Center: taipei, Zoom: 15, Width: w, Height: h}
}

func TestFogService_RenderPNG(t *testing.T) {
	svc := usecases.NewFogService(&stubLocator{pts: []domain.GeoPoint{taipei}}, nil, usecases.FogSettings{Opacity: 0.8, RadiusMeters: 200}, nil)

	data, err := svc.RenderPNG(context.Background(), fogRequest(80, 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("unexpected size %v", b)
	}
	if _, _, _, a := img.At(40, 30).RGBA(); a != 0 {
		t.Errorf("expected clear centre, alpha %d", a)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0 {
		t.Error("expected fog in the corner")
	}
}

func TestFogService_Validate(t *testing.T) {
	svc := usecases.NewFogService(&stubLocator{}, nil, usecases.FogSettings{MaxWidth: 100, MaxHeight: 100}, nil)
	bad := 1.5
	cases := map[string]usecases.FogRequest{
		"zero width": fogRequest(0, 10),
		"too large":  fogRequest(101, 10),
		"opacity":    {Center: taipei, Zoom: 15, Width: 10, Height: 10, Opacity: &bad},
		"radius":     {Center: taipei, Zoom: 15, Width: 10, Height: 10, RadiusMeters: -1},
		"zoom":       {Center: taipei, Zoom: 40, Width: 10, Height: 10},
		"latitude":   {Center: domain.GeoPoint{Lat: 100}, Zoom: 1, Width: 10, Height: 10},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.RenderPNG(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFogService_RenderPNG_CacheKeyFollowsPoints(t *testing.T) {
	loc := &stubLocator{pts: []domain.GeoPoint{taipei}}
	cache := newMockCache()
	svc := usecases.NewFogService(loc, cache, usecases.FogSettings{}, nil)
	ctx := context.Background()

	first, err := svc.RenderPNG(ctx, fogRequest(40, 40))
	if err != nil {
		t.Fatal(err)
	}
	again, _ := svc.RenderPNG(ctx, fogRequest(40, 40))
	if !bytes.Equal(first, again) || cache.sets != 1 {
		t.Errorf("expected second call served from cache, sets=%d", cache.sets)
	}

	loc.pts = nil
	cleared, _ := svc.RenderPNG(ctx, fogRequest(40, 40))
	if bytes.Equal(first, cleared) || cache.sets != 2 {
		t.Errorf("expected a new render after the visited set changed, sets=%d", cache.sets)
	}
}

// shiftingLocator returns the next snapshot on every call, as if the log
// changed between reads.
type shiftingLocator struct {
	snapshots [][]domain.GeoPoint
	calls     int
}

func (s *shiftingLocator) VisitedLocations(context.Context) ([]domain.GeoPoint, error) {
	pts := s.snapshots[min(s.calls, len(s.snapshots)-1)]
	s.calls++
	return pts, nil
}

func TestFogService_RenderPNG_ImageMatchesCacheKeySnapshot(t *testing.T) {
	loc := &shiftingLocator{snapshots: [][]domain.GeoPoint{{taipei}, {}}}
	cache := newMockCache()
	svc := usecases.NewFogService(loc, cache, usecases.FogSettings{Opacity: 0.8, RadiusMeters: 200}, nil)
	ctx := context.Background()

	data, err := svc.RenderPNG(ctx, fogRequest(40, 40))
	if err != nil {
		t.Fatal(err)
	}
	if loc.calls != 1 {
		t.Errorf("expected one visited-set read per render, got %d", loc.calls)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if _, _, _, a := img.At(20, 20).RGBA(); a != 0 {
		t.Errorf("expected the image drawn from the keyed snapshot (clear centre), alpha %d", a)
	}

	// The cached entry sits under the key of the snapshot it was drawn from.
	loc.snapshots = [][]domain.GeoPoint{{taipei}}
	loc.calls = 0
	again, _ := svc.RenderPNG(ctx, fogRequest(40, 40))
	if !bytes.Equal(data, again) || cache.sets != 1 {
		t.Errorf("expected cache hit for the same snapshot, sets=%d", cache.sets)
	}
}

func TestFogService_PointsError(t *testing.T) {
	boom := errors.New("store down")
	svc := usecases.NewFogService(&stubLocator{err: boom}, nil, usecases.FogSettings{}, nil)
	if _, err := svc.RenderPNG(context.Background(), fogRequest(10, 10)); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestFogService_Options(t *testing.T) {
	svc := usecases.NewFogService(&stubLocator{}, nil, usecases.FogSettings{Opacity: 0.6, RadiusMeters: 150, Grain: true}, nil)

	op, r := svc.Defaults().Resolved()
	if op != 0.6 || r != 150 || !svc.Defaults().Grain {
		t.Errorf("defaults wrong: %v %v", op, r)
	}

	zero := 0.0
	off := false
	opts := svc.Options(&zero, 300, &off)
	op, r = opts.Resolved()
	if op != 0 || r != 300 || opts.Grain {
		t.Errorf("overrides not applied: %v %v %v", op, r, opts.Grain)
	}
}

func TestFogService_LivePointsKeepsLastSnapshot(t *testing.T) {
	loc := &stubLocator{pts: []domain.GeoPoint{taipei}}
	svc := usecases.NewFogService(loc, nil, usecases.FogSettings{}, nil)
	src := svc.LivePoints(context.Background())

	if got := src.RevealPoints(); len(got) != 1 {
		t.Fatalf("expected 1 point, got %v", got)
	}
	loc.err = errors.New("transient")
	if got := src.RevealPoints(); len(got) != 1 {
		t.Errorf("expected last snapshot on error, got %v", got)
	}
}
