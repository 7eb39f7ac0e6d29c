package port

import (
	"context"
	"pixelperfect/internal/core/domain"
)

type TextSender interface {
	// SendMessageReply sends a reply to a specified message with the given text.
	SendMessageReply(ctx context.Context, message *domain.Message, text string) error
	// NotifyAndReturnError replies with the user-visible form of err and returns err.
	NotifyAndReturnError(ctx context.Context, err error, message *domain.Message) error
	// SendChatAction repeats a chat action (e.g. uploading a document) until ctx is done.
	SendChatAction(ctx context.Context, chatID int64, action domain.Action)
}

type DocumentSender interface {
	// SendDocumentReply uploads data as a file named filename in reply to the provided message.
	SendDocumentReply(ctx context.Context, message *domain.Message, filename string, data []byte) error
}
