package main

import (
	"context"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/samirrijal/cafelog/internal/bootstrap"
	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/usecases"
	"github.com/samirrijal/cafelog/internal/pkg/config"
	"github.com/samirrijal/cafelog/internal/pkg/logging"
)

func main() {
	fs := pflag.NewFlagSet("fogrender", pflag.ExitOnError)
	lat := fs.Float64("lat", 25.033, "viewport centre latitude")
	lon := fs.Float64("lon", 121.5654, "viewport centre longitude")
	zoom := fs.Float64("zoom", 13, "web mercator zoom")
	width := fs.Int("width", 1024, "image width in pixels")
	height := fs.Int("height", 1024, "image height in pixels")
	opacity := fs.Float64("opacity", 0, "fog opacity in [0,1] (default from config)")
	radius := fs.Float64("radius", 0, "reveal radius in meters (default from config)")
	grain := fs.Bool("grain", false, "add film grain to the fog")
	out := fs.StringP("out", "o", "fog.png", "output file")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load("cafelog-fogrender")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	cafes := usecases.NewCafeService(store.Cafes, store.Photos, nil, nil)
	svc := usecases.NewFogService(cafes, nil, usecases.FogSettings{
		Opacity:      cfg.Fog.Opacity,
		RadiusMeters: cfg.Fog.RadiusMeters,
		Grain:        cfg.Fog.Grain,
		MaxWidth:     cfg.Fog.MaxWidth,
		MaxHeight:    cfg.Fog.MaxHeight,
	}, logger)

	req := usecases.FogRequest{
		Center:       domain.GeoPoint{Lat: *lat, Lon: *lon},
		Zoom:         *zoom,
		Width:        *width,
		Height:       *height,
		RadiusMeters: *radius,
	}
	if fs.Changed("opacity") {
		req.Opacity = opacity
	}
	if fs.Changed("grain") {
		req.Grain = grain
	}
	if err := svc.Validate(req); err != nil {
		log.Fatalf("fog request: %v", err)
	}

	img, err := svc.Render(ctx, req, "cli")
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		log.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close %s: %v", *out, err)
	}
	slog.Info("fog rendered", "out", *out, "store", store.Driver)
}
