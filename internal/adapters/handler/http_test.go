package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"pixelperfect/internal/adapters/converter"
	"pixelperfect/internal/adapters/file"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	calls  int
	result domain.UpscaleResult
}

func (f *fakeDispatcher) Dispatch(_ context.Context, image domain.ImageAsset,
	scale domain.ScaleFactor) domain.UpscaleResult {
	f.calls++
	if f.result.Err != nil || f.result.Rendition.Source != "" {
		return f.result
	}

	// scaled placeholder standing in for a local resize
	return domain.Success(domain.Rendition{
		Data:       append([]byte("upscaled:"), image.Data[:8]...),
		MediaType:  domain.PNG,
		Dimensions: domain.Dimensions{Width: 4 * int(scale), Height: 3 * int(scale)},
		Source:     domain.SourceLocal,
	})
}

type testServer struct {
	srv        *httptest.Server
	dispatcher *fakeDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := file.NewTempStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	d := &fakeDispatcher{}
	sessions := service.NewSessionManager(time.Hour, store.Remove)
	upscaler := service.NewUpscaler(d, sessions, store, file.NewDownloader(nil, 1<<20), converter.NewInspector(),
		ResultURL)

	srv := httptest.NewServer(NewHTTP(upscaler, store).Routes())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, dispatcher: d}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 3))))

	return buf.Bytes()
}

func multipartBody(t *testing.T, filename, contentType string, data []byte,
	fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, ts.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	return res
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()

	res := ts.do(t, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var created createSessionResp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	require.NotEmpty(t, created.SessionID)

	return created.SessionID
}

func (ts *testServer) selectImage(t *testing.T, id, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	body, ct := multipartBody(t, filename, contentType, data, nil)
	return ts.do(t, http.MethodPut, "/api/sessions/"+id+"/image", ct, body)
}

func decodeError(t *testing.T, res *http.Response) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))

	return body.Error
}

func TestHTTP_SessionFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	res := ts.selectImage(t, id, "photo.png", "image/png", pngBytes(t))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var state service.SessionState
	require.NoError(t, json.NewDecoder(res.Body).Decode(&state))
	assert.Equal(t, "photo.png", state.FileName)
	require.NotNil(t, state.Original)
	assert.Equal(t, domain.Dimensions{Width: 4, Height: 3}, *state.Original)

	res = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/upscale", "application/json",
		bytes.NewBufferString(`{"scale":"4x"}`))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result service.Result
	require.NoError(t, json.NewDecoder(res.Body).Decode(&result))
	assert.Equal(t, domain.Dimensions{Width: 16, Height: 12}, result.Dimensions)
	assert.Equal(t, "photo_upscaled_4x.png", result.DownloadName)
	assert.Equal(t, domain.SourceLocal, result.Source)
	assert.Contains(t, result.Locator, ResultsPath)

	res = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/download", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `attachment; filename=photo_upscaled_4x.png`, res.Header.Get("Content-Disposition"))
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	downloaded, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(downloaded, []byte("upscaled:")))

	res = ts.do(t, http.MethodGet, result.Locator, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	served, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, downloaded, served)

	res = ts.do(t, http.MethodDelete, "/api/sessions/"+id, "", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res = ts.do(t, http.MethodGet, "/api/sessions/"+id, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	state = service.SessionState{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&state))
	assert.Empty(t, state.FileName)
	assert.Nil(t, state.Result)

	res = ts.do(t, http.MethodGet, result.Locator, "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTP_SelectImageRejected(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        func(t *testing.T) []byte
		wantMsg     string
	}{
		{
			name:        "unsupported type",
			filename:    "anim.gif",
			contentType: "image/gif",
			data:        func(*testing.T) []byte { return []byte("GIF89a....") },
			wantMsg:     domain.MsgUnsupportedType,
		},
		{
			name:        "too large",
			filename:    "huge.png",
			contentType: "image/png",
			data:        func(*testing.T) []byte { return make([]byte, domain.MaxImageBytes+1) },
			wantMsg:     domain.MsgFileTooLarge,
		},
		{
			name:        "not an image",
			filename:    "fake.png",
			contentType: "image/png",
			data:        func(*testing.T) []byte { return []byte("plain text") },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			id := ts.createSession(t)

			res := ts.selectImage(t, id, tc.filename, tc.contentType, tc.data(t))
			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, decodeError(t, res))
			}
			assert.Equal(t, 0, ts.dispatcher.calls)
		})
	}
}

func TestHTTP_SniffsMissingContentType(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	res := ts.selectImage(t, id, "photo", "application/octet-stream", pngBytes(t))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var state service.SessionState
	require.NoError(t, json.NewDecoder(res.Body).Decode(&state))
	assert.Equal(t, domain.PNG, state.MediaType)
}

func TestHTTP_UpscaleErrors(t *testing.T) {
	tests := []struct {
		name       string
		session    func(t *testing.T, ts *testServer) string
		body       string
		result     domain.UpscaleResult
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "unknown session",
			session:    func(*testing.T, *testServer) string { return "missing" },
			body:       `{"scale":"2x"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "no image selected",
			session:    func(t *testing.T, ts *testServer) string { return ts.createSession(t) },
			body:       `{"scale":"2x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid scale",
			session: func(t *testing.T, ts *testServer) string {
				id := ts.createSession(t)
				ts.selectImage(t, id, "photo.png", "image/png", pngBytes(t))
				return id
			},
			body:       `{"scale":"3x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "terminal failure",
			session: func(t *testing.T, ts *testServer) string {
				id := ts.createSession(t)
				ts.selectImage(t, id, "photo.png", "image/png", pngBytes(t))
				return id
			},
			body:       `{"scale":"2x"}`,
			result:     domain.Failure(domain.ErrRender),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    domain.UserFacingError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.dispatcher.result = tc.result
			id := tc.session(t, ts)

			res := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/upscale", "application/json",
				bytes.NewBufferString(tc.body))
			require.Equal(t, tc.wantStatus, res.StatusCode)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, decodeError(t, res))
			}
		})
	}
}

func TestHTTP_DownloadWithoutResult(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	res := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/download", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTP_UpscaleOnce(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, "photo.png", "image/png", pngBytes(t), map[string]string{"scale": "2x"})
	res := ts.do(t, http.MethodPost, "/api/upscale", ct, body)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got oneShotResp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, 8, got.Width)
	assert.Equal(t, 6, got.Height)
	assert.Equal(t, domain.SourceLocal, got.Source)
	assert.Contains(t, got.Result, ResultsPath)
}

func TestHTTP_UpscaleOnceMissingImage(t *testing.T) {
	ts := newTestServer(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("scale", "2x"))
	require.NoError(t, mw.Close())

	res := ts.do(t, http.MethodPost, "/api/upscale", mw.FormDataContentType(), body)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHTTP_Healthz(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
