package sender

import (
	"bytes"
	"context"
	"pixelperfect/internal/core/domain"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// TelegramMessageLimit is the maximum length of a single telegram text message.
const TelegramMessageLimit = 4096

const ChatActionRepeatSeconds = 5

// TelegramBot is the subset of *bot.Bot used for replies.
type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type Telegram struct {
	bot            TelegramBot
	actionInterval time.Duration
}

func NewTelegram(bot TelegramBot) *Telegram {
	return &Telegram{bot: bot, actionInterval: ChatActionRepeatSeconds * time.Second}
}

// SendMessageReply replies with text, split into several messages when it exceeds the telegram limit.
func (s *Telegram) SendMessageReply(ctx context.Context, message *domain.Message, text string) error {
	for _, chunk := range chunkText(text, TelegramMessageLimit) {
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          message.ChatID,
			Text:            chunk,
			ReplyParameters: replyTo(message),
		})
		if err != nil {
			log.Error().Err(err).Int64("chatId", message.ChatID).Msg("failed to send message reply")
			return err
		}
	}

	return nil
}

// NotifyAndReturnError tells the user what went wrong, without internal detail, and returns err.
func (s *Telegram) NotifyAndReturnError(ctx context.Context, err error, message *domain.Message) error {
	text, ok := domain.UserMessage(err)
	if !ok {
		text = domain.UserFacingError
	}

	log.Warn().Err(err).Int64("chatId", message.ChatID).Int("messageId", message.ID).Msg("notifying user of error")

	if sendErr := s.SendMessageReply(ctx, message, text); sendErr != nil {
		return sendErr
	}

	return err
}

func (s *Telegram) SendDocumentReply(ctx context.Context, message *domain.Message, filename string,
	data []byte) error {
	params := &bot.SendDocumentParams{
		ChatID:          message.ChatID,
		Document:        &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		ReplyParameters: replyTo(message),
	}

	_, err := s.bot.SendDocument(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("file", filename).Int("bytes", len(data)).Msg("failed to send document response")
		return err
	}

	return nil
}

// SendChatAction repeats the action until ctx is done, telegram shows it for a few seconds only.
func (s *Telegram) SendChatAction(ctx context.Context, chatID int64, action domain.Action) {
	log.Debug().Int64("chatID", chatID).Msg("starting action routine")

	var chatAction models.ChatAction
	switch action {
	case domain.SendingPhoto:
		chatAction = models.ChatActionUploadPhoto
	case domain.SendingDocument:
		chatAction = models.ChatActionUploadDocument
	default:
		chatAction = models.ChatActionTyping
	}

	ticker := time.NewTicker(s.actionInterval)
	defer ticker.Stop()

	for {
		_, err := s.bot.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: chatAction,
		})
		if err != nil {
			if ctx.Err() == nil {
				log.Err(err).Msg("error sending chat action")
			}
			return
		}

		select {
		case <-ctx.Done():
			log.Debug().Int64("chatID", chatID).Msg("done, stopping action routine")
			return
		case <-ticker.C:
		}
	}
}

func replyTo(message *domain.Message) *models.ReplyParameters {
	if message.ID == 0 {
		return nil
	}

	return &models.ReplyParameters{
		MessageID: message.ID,
		ChatID:    message.ChatID,
	}
}

// chunkText splits text into pieces of at most limit bytes without cutting a rune in half.
func chunkText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}

	if text != "" {
		chunks = append(chunks, text)
	}

	return chunks
}
