package converter

import (
	"bytes"
	"fmt"
	"image"
	"pixelperfect/internal/core/domain"
)

var formatMediaTypes = map[string]domain.MediaType{
	"png":  domain.PNG,
	"jpeg": domain.JPEG,
	"webp": domain.WEBP,
}

// Inspector reads image headers without decoding pixel data.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(data []byte) (domain.Dimensions, domain.MediaType, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Dimensions{}, "", fmt.Errorf("%w: reading image header: %w", domain.ErrDecode, err)
	}

	mediaType, ok := formatMediaTypes[format]
	if !ok {
		return domain.Dimensions{}, "", fmt.Errorf("%w: unsupported format %s", domain.ErrDecode, format)
	}

	dimensions := domain.Dimensions{Width: cfg.Width, Height: cfg.Height}
	if !dimensions.Valid() {
		return domain.Dimensions{}, "", fmt.Errorf("%w: image has no pixels", domain.ErrDecode)
	}

	return dimensions, mediaType, nil
}
