package converter

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"pixelperfect/internal/config"
	"pixelperfect/internal/core/domain"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
)

// Cosmetic post-filter applied after resampling, with CSS filter semantics: contrast(1.05) brightness(1.02).
const (
	ContrastFactor   = 1.05
	BrightnessFactor = 1.02
)

var enhanceTable = buildEnhanceTable()

// ImagingResizer is the local fallback: it resamples with a smooth filter, applies the enhance filter and
// encodes the result as PNG.
type ImagingResizer struct {
	resampler       imaging.ResampleFilter
	inspector       *Inspector
	minLatency      time.Duration
	maxOutputPixels int64
}

func NewImagingResizer(cfg config.Converter) (*ImagingResizer, error) {
	resampler, err := ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	return &ImagingResizer{
		resampler:       resampler,
		inspector:       NewInspector(),
		minLatency:      cfg.MinLatency,
		maxOutputPixels: cfg.MaxOutputPixels,
	}, nil
}

// ParseFilter maps a configured filter name to a smooth resampling filter. Nearest-neighbour is not accepted.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "catmullrom", "bicubic":
		return imaging.CatmullRom, nil
	case "lanczos":
		return imaging.Lanczos, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resample filter %q", name)
	}
}

// Resize never returns before minLatency has passed, whether it succeeds or not. The output budget is
// checked against the header dimensions so oversized sources are refused before any pixel data is decoded.
func (r *ImagingResizer) Resize(ctx context.Context, img domain.ImageAsset,
	scale domain.ScaleFactor) (domain.Rendition, error) {
	started := time.Now()
	l := zerolog.Ctx(ctx)

	rendition, err := r.render(ctx, img, scale)
	if padErr := r.pad(ctx, started); padErr != nil && err == nil {
		err = padErr
	}
	if err != nil {
		return domain.Rendition{}, err
	}

	l.Debug().Int("bytes", len(rendition.Data)).Dur("elapsed", time.Since(started)).Msg("local resize finished")

	return rendition, nil
}

func (r *ImagingResizer) render(ctx context.Context, img domain.ImageAsset,
	scale domain.ScaleFactor) (domain.Rendition, error) {
	if !scale.Valid() {
		return domain.Rendition{}, fmt.Errorf("%w: scale must be 2x or 4x", domain.ErrValidation)
	}

	source, _, err := r.inspector.Inspect(img.Data)
	if err != nil {
		return domain.Rendition{}, err
	}

	target := source.Scale(scale)
	if target.Pixels() > r.maxOutputPixels {
		return domain.Rendition{}, fmt.Errorf("%w: rendering surface %dx%d exceeds %d pixels", domain.ErrRender,
			target.Width, target.Height, r.maxOutputPixels)
	}

	// EXIF orientation is ignored so the output matches the dimensions reported at selection.
	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("%w: decoding source image: %w", domain.ErrDecode, err)
	}

	if err := checkContext(ctx); err != nil {
		return domain.Rendition{}, err
	}

	zerolog.Ctx(ctx).Debug().Interface("source", source).Interface("target", target).Msg("resampling image")

	dst := imaging.Resize(src, target.Width, target.Height, r.resampler)

	if err := checkContext(ctx); err != nil {
		return domain.Rendition{}, err
	}

	dst = imaging.AdjustFunc(dst, enhance)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.PNG); err != nil {
		return domain.Rendition{}, fmt.Errorf("%w: encoding png: %w", domain.ErrRender, err)
	}

	return domain.Rendition{
		Data:       buf.Bytes(),
		MediaType:  domain.PNG,
		Dimensions: target,
		Source:     domain.SourceLocal,
	}, nil
}

// pad holds the result back until minLatency has passed since started.
func (r *ImagingResizer) pad(ctx context.Context, started time.Time) error {
	remaining := r.minLatency - time.Since(started)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrRender, ctx.Err())
	}
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	return nil
}

func enhance(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: enhanceTable[c.R], G: enhanceTable[c.G], B: enhanceTable[c.B], A: c.A}
}

func buildEnhanceTable() [256]uint8 {
	var table [256]uint8
	for i := range table {
		v := (float64(i)/255-0.5)*ContrastFactor + 0.5
		v *= BrightnessFactor
		table[i] = uint8(math.Min(255, math.Max(0, v*255+0.5)))
	}
	return table
}
