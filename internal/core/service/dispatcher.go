package service

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"
	"time"

	"github.com/rs/zerolog"
)

type State string

const (
	StateIdle          State = "idle"
	StateRemoteAttempt State = "remote_attempt"
	StateLocalAttempt  State = "local_attempt"
	StateDone          State = "done"
)

// Dispatcher runs the fallback cascade: one remote attempt and, only when it fails, one local
// attempt. The two are never run concurrently and nothing is retried.
type Dispatcher struct {
	remote        port.RemoteUpscaler
	local         port.LocalResizer
	downloader    port.Downloader
	inspector     port.ImageInspector
	remoteTimeout time.Duration
}

func NewDispatcher(remote port.RemoteUpscaler, local port.LocalResizer, downloader port.Downloader,
	inspector port.ImageInspector, remoteTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		remote:        remote,
		local:         local,
		downloader:    downloader,
		inspector:     inspector,
		remoteTimeout: remoteTimeout,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, image domain.ImageAsset,
	scale domain.ScaleFactor) domain.UpscaleResult {
	l := zerolog.Ctx(ctx).With().
		Str("image", image.Name).
		Int("bytes", image.Size()).
		Str("scale", scale.String()).
		Logger()

	state := StateIdle
	transition := func(next State) {
		l.Debug().Str("from", string(state)).Str("to", string(next)).Msg("dispatcher transition")
		state = next
	}

	transition(StateRemoteAttempt)
	rendition, err := d.attemptRemote(ctx, image, scale)
	if err == nil {
		transition(StateDone)
		l.Info().Interface("dimensions", rendition.Dimensions).Msg("remote upscale succeeded")
		return domain.Success(rendition)
	}

	l.Warn().Err(err).Str("kind", string(domain.KindOf(err))).Msg("remote upscale failed, falling back to local resize")

	transition(StateLocalAttempt)
	rendition, err = d.local.Resize(ctx, image, scale)
	transition(StateDone)
	if err != nil {
		l.Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg("local resize failed")
		return domain.Failure(fmt.Errorf("local resize: %w", err))
	}

	l.Info().Interface("dimensions", rendition.Dimensions).Msg("local resize succeeded")

	return domain.Success(rendition)
}

func (d *Dispatcher) attemptRemote(ctx context.Context, image domain.ImageAsset,
	scale domain.ScaleFactor) (domain.Rendition, error) {
	if d.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.remoteTimeout)
		defer cancel()
	}

	locator, err := d.remote.RequestUpscale(ctx, image, scale)
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("requesting remote upscale: %w", err)
	}

	data, err := d.downloader.Download(ctx, locator)
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("fetching remote result: %w", err)
	}

	dimensions, mediaType, err := d.inspector.Inspect(data)
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("inspecting remote result: %w", err)
	}

	return domain.Rendition{
		Locator:    locator,
		Data:       data,
		MediaType:  mediaType,
		Dimensions: dimensions,
		Source:     domain.SourceRemote,
	}, nil
}
