// Package photo downsizes and recompresses uploaded images before storage.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes     = 2 * 1024 * 1024
	DefaultMaxDimension = 1920
	// DefaultMaxPixels caps the declared size of an input before it is decoded.
	DefaultMaxPixels = 50_000_000

	startQuality = 90
	minQuality   = 10
	qualityStep  = 10
)

// ErrDecode is returned when the input is not an image we can read.
var ErrDecode = errors.New("unsupported or corrupt image")

// Options bounds the output.
type Options struct {
	MaxBytes     int
	MaxDimension int
	// MaxPixels rejects inputs whose header declares more pixels than this.
	MaxPixels int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// Result is a compressed JPEG.
type Result struct {
	Data        []byte
	Width       int
	Height      int
	Quality     int
	ContentType string
}

// Compress decodes r, scales it so neither side exceeds MaxDimension and
// re-encodes it as JPEG, lowering quality until the output fits MaxBytes.
// At the minimum quality the output is returned even if it is still larger.
// Inputs declaring more than MaxPixels pixels are rejected before decoding.
func Compress(r io.Reader, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(opts.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, opts.MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	sb := src.Bounds()
	w, h := FitWithin(sb.Dx(), sb.Dy(), opts.MaxDimension)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	// JPEG has no alpha; flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}

	var buf bytes.Buffer
	quality := startQuality
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= opts.MaxBytes || quality <= minQuality {
			break
		}
		quality -= qualityStep
	}

	return &Result{
		Data:        bytes.Clone(buf.Bytes()),
		Width:       w,
		Height:      h,
		Quality:     quality,
		ContentType: "image/jpeg",
	}, nil
}

// FitWithin scales (w, h) down, keeping the aspect ratio, so that neither
// side exceeds max. Sizes already within bounds are returned unchanged.
func FitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w > h {
		nh := int(math.Round(float64(h) * float64(max) / float64(w)))
		return max, maxInt(nh, 1)
	}
	nw := int(math.Round(float64(w) * float64(max) / float64(h)))
	return maxInt(nw, 1), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
