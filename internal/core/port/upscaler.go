package port

import (
	"context"
	"pixelperfect/internal/core/domain"
)

type RemoteUpscaler interface {
	// RequestUpscale submits the image and scale to the hosted model and returns a locator (URL) of the produced
	// image. It performs at most one outbound call and never retries.
	RequestUpscale(ctx context.Context, image domain.ImageAsset, scale domain.ScaleFactor) (string, error)
}

type LocalResizer interface {
	// Resize produces an upscaled PNG rendition of exactly (W*scale, H*scale) without any network dependency.
	Resize(ctx context.Context, image domain.ImageAsset, scale domain.ScaleFactor) (domain.Rendition, error)
}

type ImageInspector interface {
	// Inspect decodes only the image header and returns its pixel dimensions and media type.
	Inspect(data []byte) (domain.Dimensions, domain.MediaType, error)
}

type Upscaler interface {
	// Dispatch runs the fallback cascade for a single request.
	Dispatch(ctx context.Context, image domain.ImageAsset, scale domain.ScaleFactor) domain.UpscaleResult
}
