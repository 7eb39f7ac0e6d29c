package service

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"

	"github.com/rs/zerolog"
)

// Upscaler ties the dispatcher to sessions and the result store. It is the only writer of session results.
type Upscaler struct {
	dispatcher port.Upscaler
	sessions   *SessionManager
	store      port.ResultStore
	downloader port.Downloader
	inspector  port.ImageInspector
	resultURL  func(artifactID string) string
}

// NewUpscaler wires the upscale workflow. store may be nil, in which case locally produced images are only
// returned in Result.Data.
func NewUpscaler(dispatcher port.Upscaler, sessions *SessionManager, store port.ResultStore,
	downloader port.Downloader, inspector port.ImageInspector, resultURL func(artifactID string) string) *Upscaler {
	return &Upscaler{
		dispatcher: dispatcher,
		sessions:   sessions,
		store:      store,
		downloader: downloader,
		inspector:  inspector,
		resultURL:  resultURL,
	}
}

func (u *Upscaler) Sessions() *SessionManager {
	return u.sessions
}

// Open returns the session with the given id, creating it when needed. Chat front ends use it to bind a
// session to a chat.
func (u *Upscaler) Open(sessionID string) SessionState {
	return u.sessions.Open(sessionID)
}

// SelectImage validates an upload, reads its dimensions and makes it the session's selected image.
func (u *Upscaler) SelectImage(ctx context.Context, sessionID string, image domain.ImageAsset) (SessionState, error) {
	l := u.logger(ctx, sessionID)

	dimensions, err := u.validate(image)
	if err != nil {
		l.Info().Err(err).Str("file", image.Name).Msg("rejected image")
		return SessionState{}, err
	}

	state, err := u.sessions.SelectImage(sessionID, image, dimensions)
	if err != nil {
		return SessionState{}, err
	}

	l.Info().Str("file", image.Name).Int("bytes", image.Size()).Interface("dimensions", dimensions).
		Msg("image selected")

	return state, nil
}

// Upscale runs the fallback cascade for the session's selected image. A result for a session that was reset
// while the request was in flight is discarded and domain.ErrStaleResult is returned.
func (u *Upscaler) Upscale(ctx context.Context, sessionID string, scale domain.ScaleFactor) (Result, error) {
	l := u.logger(ctx, sessionID)
	ctx = l.WithContext(ctx)

	if !scale.Valid() {
		return Result{}, fmt.Errorf("%w: scale must be 2x or 4x", domain.ErrValidation)
	}

	ticket, image, err := u.sessions.Begin(sessionID, scale)
	if err != nil {
		return Result{}, err
	}

	l.Info().Uint64("generation", ticket.Generation).Str("scale", scale.String()).Msg("handling upscale request")

	outcome := u.dispatcher.Dispatch(ctx, image, scale)
	if !outcome.OK() {
		if err := u.sessions.Fail(ticket, domain.UserFacingError); err != nil {
			l.Info().Msg("discarding failure of reset session")
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", domain.ErrUpscaleFailed, outcome.Err)
	}

	result, err := u.publish(ctx, outcome.Rendition, image.Name, scale)
	if err != nil {
		_ = u.sessions.Fail(ticket, domain.UserFacingError)
		return Result{}, fmt.Errorf("%w: %w", domain.ErrUpscaleFailed, err)
	}

	if err := u.sessions.Complete(ticket, result); err != nil {
		l.Info().Msg("discarding result of reset session")
		u.discard(result)
		return Result{}, err
	}

	return result, nil
}

// UpscaleOnce runs the fallback cascade for an image that is not attached to a session.
func (u *Upscaler) UpscaleOnce(ctx context.Context, image domain.ImageAsset, scale domain.ScaleFactor) (Result,
	error) {
	if !scale.Valid() {
		return Result{}, fmt.Errorf("%w: scale must be 2x or 4x", domain.ErrValidation)
	}

	if err := image.Validate(); err != nil {
		return Result{}, err
	}

	outcome := u.dispatcher.Dispatch(ctx, image, scale)
	if !outcome.OK() {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrUpscaleFailed, outcome.Err)
	}

	result, err := u.publish(ctx, outcome.Rendition, image.Name, scale)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrUpscaleFailed, err)
	}

	return result, nil
}

// Download returns the session's result bytes together with the filename it should be saved under.
func (u *Upscaler) Download(ctx context.Context, sessionID string) (string, domain.MediaType, []byte, error) {
	state, err := u.sessions.Get(sessionID)
	if err != nil {
		return "", "", nil, err
	}

	if state.Result == nil {
		return "", "", nil, fmt.Errorf("session %s has no result: %w", sessionID, domain.ErrNotFound)
	}

	res := state.Result
	if res.ArtifactID != "" && u.store != nil {
		data, mediaType, err := u.store.Load(ctx, res.ArtifactID)
		if err != nil {
			return "", "", nil, err
		}
		return res.DownloadName, mediaType, data, nil
	}

	data, err := u.downloader.Download(ctx, res.Locator)
	if err != nil {
		return "", "", nil, err
	}

	return res.DownloadName, res.MediaType, data, nil
}

func (u *Upscaler) Reset(ctx context.Context, sessionID string) error {
	if err := u.sessions.Reset(sessionID); err != nil {
		return err
	}

	u.logger(ctx, sessionID).Info().Msg("session reset")

	return nil
}

func (u *Upscaler) validate(image domain.ImageAsset) (domain.Dimensions, error) {
	if err := image.Validate(); err != nil {
		return domain.Dimensions{}, err
	}

	dimensions, _, err := u.inspector.Inspect(image.Data)
	if err != nil {
		return domain.Dimensions{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	return dimensions, nil
}

func (u *Upscaler) publish(ctx context.Context, rendition domain.Rendition, name string,
	scale domain.ScaleFactor) (Result, error) {
	result := Result{
		Locator:      rendition.Locator,
		MediaType:    rendition.MediaType,
		Dimensions:   rendition.Dimensions,
		Source:       rendition.Source,
		Scale:        scale.String(),
		DownloadName: domain.DownloadFilename(name, scale),
		Data:         rendition.Data,
	}

	if rendition.Locator != "" || u.store == nil {
		return result, nil
	}

	id, err := u.store.Save(ctx, rendition.Data, rendition.MediaType)
	if err != nil {
		return Result{}, fmt.Errorf("storing result: %w", err)
	}

	result.ArtifactID = id
	result.Locator = u.resultURL(id)

	return result, nil
}

func (u *Upscaler) discard(result Result) {
	if result.ArtifactID != "" && u.store != nil {
		u.store.Remove(result.ArtifactID)
	}
}

func (u *Upscaler) logger(ctx context.Context, sessionID string) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("sessionId", sessionID).Logger()
	return &l
}
