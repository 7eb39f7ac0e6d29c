package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"pixelperfect/internal/adapters/file"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"
	"pixelperfect/internal/core/service"
	"pixelperfect/pkg/httperrors"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// ResultsPath is the route prefix under which locally produced images are served.
const ResultsPath = "/api/results/"

// uploadSlack leaves room for multipart framing on top of the image itself.
const uploadSlack = 1 << 20

type HTTP struct {
	upscaler *service.Upscaler
	store    port.ResultStore
}

func NewHTTP(upscaler *service.Upscaler, store port.ResultStore) *HTTP {
	return &HTTP{upscaler: upscaler, store: store}
}

// ResultURL returns the path a stored artifact is served under.
func ResultURL(artifactID string) string {
	return ResultsPath + artifactID
}

type createSessionResp struct {
	SessionID string `json:"session_id"`
}

type upscaleReq struct {
	Scale string `json:"scale"`
}

type oneShotResp struct {
	Result string        `json:"result"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Source domain.Source `json:"source"`
}

func (h *HTTP) Routes() http.Handler {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.RealIP)
	rtr.Use(accessLog)
	rtr.Use(middleware.Recoverer)

	rtr.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	rtr.Route("/api", func(r chi.Router) {
		r.Post("/upscale", h.upscaleOnce)
		r.Get("/results/{id}", h.getResult)

		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.resetSession)
			r.Put("/image", h.putImage)
			r.Delete("/image", h.resetSession)
			r.Post("/upscale", h.upscale)
			r.Get("/download", h.download)
		})
	})

	return rtr
}

func (h *HTTP) createSession(w http.ResponseWriter, _ *http.Request) {
	id, err := h.upscaler.Sessions().Create()
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResp{SessionID: id})
}

func (h *HTTP) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.upscaler.Sessions().Get(chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *HTTP) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.upscaler.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperrors.Write(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTP) putImage(w http.ResponseWriter, r *http.Request) {
	image, err := readUpload(w, r)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	state, err := h.upscaler.SelectImage(r.Context(), chi.URLParam(r, "id"), image)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *HTTP) upscale(w http.ResponseWriter, r *http.Request) {
	var payload upscaleReq
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httperrors.Write(w, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}

	scale, err := domain.ParseScaleFactor(payload.Scale)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	result, err := h.upscaler.Upscale(r.Context(), chi.URLParam(r, "id"), scale)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTP) download(w http.ResponseWriter, r *http.Request) {
	name, mediaType, data, err := h.upscaler.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	writeImage(w, mediaType, data)
}

func (h *HTTP) getResult(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httperrors.Write(w, domain.ErrNotFound)
		return
	}

	data, mediaType, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeImage(w, mediaType, data)
}

// upscaleOnce runs the cascade for an upload that is not bound to a session.
func (h *HTTP) upscaleOnce(w http.ResponseWriter, r *http.Request) {
	image, err := readUpload(w, r)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	scale, err := domain.ParseScaleFactor(r.FormValue("scale"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	result, err := h.upscaler.UpscaleOnce(r.Context(), image, scale)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, oneShotResp{
		Result: result.Locator,
		Width:  result.Dimensions.Width,
		Height: result.Dimensions.Height,
		Source: result.Source,
	})
}

// readUpload reads the multipart "image" field. The part's declared content type is used when it is an image
// type, otherwise the type is sniffed from the content.
func readUpload(w http.ResponseWriter, r *http.Request) (domain.ImageAsset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxImageBytes+uploadSlack)

	part, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ImageAsset{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.MsgFileTooLarge)
		}
		return domain.ImageAsset{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNoImage)
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, domain.MaxImageBytes+1))
	if err != nil {
		return domain.ImageAsset{}, fmt.Errorf("%w: reading upload: %w", domain.ErrValidation, err)
	}

	if len(data) > domain.MaxImageBytes {
		return domain.ImageAsset{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.MsgFileTooLarge)
	}

	mediaType, err := domain.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		mediaType = file.SniffMediaType(data)
	}

	return domain.NewImageAsset(header.Filename, mediaType, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeImage(w http.ResponseWriter, mediaType domain.MediaType, data []byte) {
	w.Header().Set("Content-Type", string(mediaType))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		log.Warn().Err(err).Msg("failed to write image")
	}
}

// accessLog attaches a request scoped logger to the context and logs every completed request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		l := log.With().
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

		event := l.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = l.Warn()
		}
		event.Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(started)).
			Msg("handled request")
	})
}
