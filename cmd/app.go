package cmd

import (
	"fmt"
	"net/http"
	"pixelperfect/internal/adapters/converter"
	"pixelperfect/internal/adapters/file"
	"pixelperfect/internal/adapters/generator"
	"pixelperfect/internal/adapters/handler"
	"pixelperfect/internal/config"
	"pixelperfect/internal/core/service"

	"github.com/rs/zerolog/log"
)

// app holds the wired core shared by every front end.
type app struct {
	upscaler   *service.Upscaler
	sessions   *service.SessionManager
	store      *file.TempStore
	downloader *file.Downloader
}

func buildApp(cfg *config.Config) (*app, error) {
	client := &http.Client{}

	downloader := file.NewDownloader(client, cfg.Remote.MaxResultBytes)
	inspector := converter.NewInspector()

	resizer, err := converter.NewImagingResizer(cfg.Converter)
	if err != nil {
		return nil, fmt.Errorf("failed initializing local resizer: %w", err)
	}

	if !cfg.Replicate.HasCredential() {
		log.Warn().Msg("no replicate api token configured, every request will use the local resizer")
	}
	remote := generator.NewReplicate(cfg.Replicate, client)

	dispatcher := service.NewDispatcher(remote, resizer, downloader, inspector, cfg.Remote.Timeout)

	store, err := file.NewTempStore(cfg.Store.Dir, cfg.Store.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed initializing result store: %w", err)
	}

	sessions := service.NewSessionManager(cfg.Session.TTL, store.Remove)

	return &app{
		upscaler:   service.NewUpscaler(dispatcher, sessions, store, downloader, inspector, handler.ResultURL),
		sessions:   sessions,
		store:      store,
		downloader: downloader,
	}, nil
}
