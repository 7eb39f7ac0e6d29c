package command

import (
	"context"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/service"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockTextSender struct {
	mutex    sync.Mutex
	err      error
	Messages []string
}

func (m *MockTextSender) SendMessageReply(_ context.Context, _ *domain.Message, message string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Messages = append(m.Messages, message)
	return m.err
}

func (m *MockTextSender) NotifyAndReturnError(ctx context.Context, err error, message *domain.Message) error {
	msg, ok := domain.UserMessage(err)
	if !ok {
		msg = domain.UserFacingError
	}
	_ = m.SendMessageReply(ctx, message, msg)
	return err
}

func (m *MockTextSender) SendChatAction(_ context.Context, _ int64, _ domain.Action) {}

func (m *MockTextSender) Last() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1]
}

type MockDocumentSender struct {
	filename string
	data     []byte
	err      error
}

func (m *MockDocumentSender) SendDocumentReply(_ context.Context, _ *domain.Message, filename string,
	data []byte) error {
	m.filename = filename
	m.data = data
	return m.err
}

type MockDownloader struct{ mock.Mock }

func (m *MockDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type MockUpscaler struct{ mock.Mock }

func (m *MockUpscaler) Open(sessionID string) service.SessionState {
	m.Called(sessionID)
	return service.SessionState{ID: sessionID}
}

func (m *MockUpscaler) SelectImage(ctx context.Context, sessionID string,
	image domain.ImageAsset) (service.SessionState, error) {
	args := m.Called(ctx, sessionID, image)
	return service.SessionState{ID: sessionID}, args.Error(0)
}

func (m *MockUpscaler) Upscale(ctx context.Context, sessionID string,
	scale domain.ScaleFactor) (service.Result, error) {
	args := m.Called(ctx, sessionID, scale)
	r, _ := args.Get(0).(service.Result)
	return r, args.Error(1)
}

func (m *MockUpscaler) Reset(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type allowAll struct{}

func (allowAll) IsAuthorized(context.Context, *domain.Message) bool { return true }

type denyAll struct{}

func (denyAll) IsAuthorized(context.Context, *domain.Message) bool { return false }
