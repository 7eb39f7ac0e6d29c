package command

import (
	"context"
	"errors"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"
	"pixelperfect/internal/core/service"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionUpscaler is the part of service.Upscaler the chat commands drive.
type SessionUpscaler interface {
	Open(sessionID string) service.SessionState
	SelectImage(ctx context.Context, sessionID string, image domain.ImageAsset) (service.SessionState, error)
	Upscale(ctx context.Context, sessionID string, scale domain.ScaleFactor) (service.Result, error)
	Reset(ctx context.Context, sessionID string) error
}

const (
	msgMissingImage = "Send a photo or image file with /upscale as caption, or reply to one with /upscale."
	msgUsage        = "usage: /upscale or /upscale 2x|4x"
	msgLocalResult  = "The AI upscaler was unavailable, so this image was enlarged with standard resampling."
)

type Upscale struct {
	upscaler       SessionUpscaler
	downloader     port.Downloader
	textSender     port.TextSender
	documentSender port.DocumentSender
	auth           service.Authorizer
	command        string
}

func NewUpscale(upscaler SessionUpscaler, downloader port.Downloader, textSender port.TextSender,
	documentSender port.DocumentSender, auth service.Authorizer, command string) *Upscale {
	return &Upscale{
		upscaler:       upscaler,
		downloader:     downloader,
		textSender:     textSender,
		documentSender: documentSender,
		auth:           auth,
		command:        command,
	}
}

func (u *Upscale) GetCommand() string {
	return u.command
}

func (u *Upscale) Usage() string {
	return "upscale the attached or replied-to image, 2x (default) or 4x"
}

// SessionID binds a chat to its upscaling session.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

func (u *Upscale) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Str("command", u.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = l.WithContext(ctx)

	if !u.auth.IsAuthorized(ctx, message) {
		l.Debug().Msg("not authorized")
		return nil
	}

	if message.ImageURL == "" {
		return u.reply(ctx, message, msgMissingImage)
	}

	scale := domain.Scale2x
	if args := ParseCommandArgs(message.Text); args != "" {
		var err error
		scale, err = domain.ParseScaleFactor(args)
		if err != nil {
			return u.reply(ctx, message, msgUsage)
		}
	}

	go u.textSender.SendChatAction(ctx, message.ChatID, domain.SendingDocument)

	mediaType, err := domain.ParseMediaType(message.MimeType)
	if err != nil {
		return u.textSender.NotifyAndReturnError(ctx, err, message)
	}

	data, err := u.downloader.Download(ctx, message.ImageURL)
	if err != nil {
		return u.textSender.NotifyAndReturnError(ctx, fmt.Errorf("error downloading image: %w", err), message)
	}

	sessionID := SessionID(message.ChatID)
	u.upscaler.Open(sessionID)

	image := domain.ImageAsset{Name: message.FileName, MediaType: mediaType, Data: data}
	if _, err := u.upscaler.SelectImage(ctx, sessionID, image); err != nil {
		return u.textSender.NotifyAndReturnError(ctx, err, message)
	}

	result, err := u.upscaler.Upscale(ctx, sessionID, scale)
	if errors.Is(err, domain.ErrStaleResult) {
		l.Info().Msg("result superseded, not sending")
		return nil
	}
	if err != nil {
		return u.textSender.NotifyAndReturnError(ctx, err, message)
	}

	if err := u.documentSender.SendDocumentReply(ctx, message, result.DownloadName, result.Data); err != nil {
		return u.textSender.NotifyAndReturnError(ctx,
			fmt.Errorf("%w: error sending upscaled image: %w", domain.ErrSendingReplyFailed, err), message)
	}

	if result.Source == domain.SourceLocal {
		return u.reply(ctx, message, msgLocalResult)
	}

	return nil
}

func (u *Upscale) reply(ctx context.Context, message *domain.Message, text string) error {
	if err := u.textSender.SendMessageReply(ctx, message, text); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}
	return nil
}
