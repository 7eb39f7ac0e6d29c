package command

import (
	"context"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"
	"pixelperfect/internal/core/service"
	"time"

	"github.com/rs/zerolog/log"
)

type Reset struct {
	upscaler   SessionUpscaler
	textSender port.TextSender
	auth       service.Authorizer
	command    string
}

func NewReset(upscaler SessionUpscaler, textSender port.TextSender, auth service.Authorizer, command string) *Reset {
	return &Reset{upscaler: upscaler, textSender: textSender, auth: auth, command: command}
}

func (r *Reset) GetCommand() string {
	return r.command
}

func (r *Reset) Usage() string {
	return "start over, a running upscale in this chat will not be delivered"
}

func (r *Reset) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	l := log.With().
		Int("messageId", message.ID).
		Int64("chatId", message.ChatID).
		Str("command", r.GetCommand()).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = l.WithContext(ctx)

	if !r.auth.IsAuthorized(ctx, message) {
		return nil
	}

	sessionID := SessionID(message.ChatID)
	r.upscaler.Open(sessionID)

	if err := r.upscaler.Reset(ctx, sessionID); err != nil {
		return r.textSender.NotifyAndReturnError(ctx, err, message)
	}

	return r.textSender.SendMessageReply(ctx, message, "Session cleared. Send a new image to start over.")
}
