package service

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"

	"github.com/rs/zerolog/log"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, message *domain.Message) bool
}

// ChatAuthorizer allows chats on an allowlist. An empty allowlist allows every chat.
type ChatAuthorizer struct {
	allowlist map[int64]struct{}
	sender    port.TextSender
}

func NewAuthorizer(allowed []int64, sender port.TextSender) *ChatAuthorizer {
	list := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		list[id] = struct{}{}
	}

	return &ChatAuthorizer{
		allowlist: list,
		sender:    sender,
	}
}

const forbidden = "This chat is not allowed to use the upscaler. Ask the operator to add this ID: %d"

func (a *ChatAuthorizer) IsAuthorized(ctx context.Context, message *domain.Message) bool {
	if len(a.allowlist) == 0 {
		return true
	}

	if _, ok := a.allowlist[message.ChatID]; ok {
		return true
	}

	log.Info().Int64("chatId", message.ChatID).Msg("rejected chat not on allowlist")

	err := a.sender.SendMessageReply(ctx, message, fmt.Sprintf(forbidden, message.ChatID))
	if err != nil {
		log.Err(err).Msg("failed to send unauthorized warning")
	}

	return false
}
