package port

import (
	"context"
	"pixelperfect/internal/core/domain"
)

type Downloader interface {
	// Download returns the body of a successful GET on url, bounded by the configured maximum size.
	Download(ctx context.Context, url string) ([]byte, error)
}

type ResultStore interface {
	// Save stores a produced image and returns its identifier.
	Save(ctx context.Context, data []byte, mediaType domain.MediaType) (string, error)
	// Load returns the stored image for id or domain.ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, domain.MediaType, error)
	// Remove deletes a stored image. Missing ids are ignored.
	Remove(id string)
}
