package service

import (
	"context"
	"pixelperfect/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockRemote struct{ mock.Mock }

func (m *MockRemote) RequestUpscale(ctx context.Context, image domain.ImageAsset, scale domain.ScaleFactor) (string,
	error) {
	args := m.Called(ctx, image, scale)
	return args.String(0), args.Error(1)
}

type MockResizer struct{ mock.Mock }

func (m *MockResizer) Resize(ctx context.Context, image domain.ImageAsset,
	scale domain.ScaleFactor) (domain.Rendition, error) {
	args := m.Called(ctx, image, scale)
	r, _ := args.Get(0).(domain.Rendition)
	return r, args.Error(1)
}

type MockDownloader struct{ mock.Mock }

func (m *MockDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type MockInspector struct{ mock.Mock }

func (m *MockInspector) Inspect(data []byte) (domain.Dimensions, domain.MediaType, error) {
	args := m.Called(data)
	d, _ := args.Get(0).(domain.Dimensions)
	mt, _ := args.Get(1).(domain.MediaType)
	return d, mt, args.Error(2)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) Save(ctx context.Context, data []byte, mediaType domain.MediaType) (string, error) {
	args := m.Called(ctx, data, mediaType)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Load(ctx context.Context, id string) ([]byte, domain.MediaType, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).([]byte)
	mt, _ := args.Get(1).(domain.MediaType)
	return b, mt, args.Error(2)
}

func (m *MockStore) Remove(id string) {
	m.Called(id)
}

// blockingDispatcher lets a test interleave session changes with an in-flight request.
type blockingDispatcher struct {
	started chan struct{}
	release chan struct{}
	result  domain.UpscaleResult
}

func (b *blockingDispatcher) Dispatch(_ context.Context, _ domain.ImageAsset,
	_ domain.ScaleFactor) domain.UpscaleResult {
	close(b.started)
	<-b.release
	return b.result
}
