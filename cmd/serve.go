package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"pixelperfect/internal/adapters/handler"
	"pixelperfect/internal/adapters/sender"
	"pixelperfect/internal/core/domain/command"
	"pixelperfect/internal/core/service"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when configured, the telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("starting pixelperfect...")

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.store.Close()

	var b *bot.Bot
	if cfg.Telegram.BotToken != "" {
		if b, err = newBot(a); err != nil {
			return err
		}
	} else {
		log.Info().Msg("no telegram bot token configured, bot disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler.NewHTTP(a.upscaler, a.store).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down http api")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.sessions.ExpireIdle(gctx, cfg.Session.SweepInterval)
		return nil
	})

	g.Go(func() error {
		a.store.ExpireStale(gctx, cfg.Session.SweepInterval)
		return nil
	})

	if b != nil {
		g.Go(func() error {
			log.Info().Msg("bot listening")
			b.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

func newBot(a *app) (*bot.Bot, error) {
	b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(noOpHandler))
	if err != nil {
		return nil, fmt.Errorf("failed initializing telegram bot: %w", err)
	}

	s := sender.NewTelegram(b)
	auth := service.NewAuthorizer(cfg.Telegram.AllowedChatIDs, s)

	registry := &command.Registry{}
	registry.Register(command.NewUpscale(a.upscaler, a.downloader, s, s, auth, "/upscale"))
	registry.Register(command.NewReset(a.upscaler, s, auth, "/reset"))
	registry.Register(command.NewHelp(registry, s, "/help"))
	registry.Register(command.NewHelp(registry, s, "/start"))

	commandHandler := handler.NewCommand(registry, b, cfg.Handler.Timeout)

	b.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, commandHandler.Handle)
	b.RegisterHandler(bot.HandlerTypePhotoCaption, "/", bot.MatchTypePrefix, commandHandler.Handle)

	return b, nil
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
