package handler

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/domain/command"
	"pixelperfect/internal/core/port"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// FileResolver turns telegram file ids into download links. *bot.Bot implements it.
type FileResolver interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Command struct {
	commandRegistry port.CommandRegistry
	files           FileResolver
	timeout         time.Duration
}

func NewCommand(commandRegistry port.CommandRegistry, files FileResolver, timeout time.Duration) *Command {
	return &Command{commandRegistry: commandRegistry, files: files, timeout: timeout}
}

// Handle is registered as telegram handler for slash commands in texts and captions.
func (c *Command) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	log.Debug().Str("message", text).Msg("received command")

	cmd := command.ParseCommand(text)
	commandHandler, err := c.commandRegistry.Get(cmd)
	if err != nil {
		log.Debug().Str("command", cmd).Msg("no handler for command")
		return
	}

	ctx = context.WithoutCancel(ctx)

	go func() {
		message := &domain.Message{
			ID:       msg.ID,
			ChatID:   msg.Chat.ID,
			Text:     text,
			Username: getUserNameOrFirstName(msg.From),
		}
		c.attachImage(ctx, msg, message)

		if err := commandHandler.Respond(ctx, c.timeout, message); err != nil {
			log.Err(err).Str("command", cmd).Msg("failed to respond to command")
		}
	}()
}

// attachImage resolves the image of the message, or of the message it replies to, into a download link.
func (c *Command) attachImage(ctx context.Context, msg *models.Message, message *domain.Message) {
	fileID, fileName, mimeType := imageOf(msg)
	if fileID == "" && msg.ReplyToMessage != nil {
		fileID, fileName, mimeType = imageOf(msg.ReplyToMessage)
	}

	if fileID == "" {
		return
	}

	f, err := c.files.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		log.Error().Err(err).Str("fileId", fileID).Msg("error getting file from telegram api")
		return
	}

	message.ImageURL = c.files.FileDownloadLink(f)
	message.FileName = fileName
	message.MimeType = mimeType
}

// imageOf returns the file id, name and media type of a photo or document attached to msg.
func imageOf(msg *models.Message) (string, string, string) {
	if msg.Document != nil {
		return msg.Document.FileID, msg.Document.FileName, msg.Document.MimeType
	}

	if len(msg.Photo) > 0 {
		return findLargestImage(msg.Photo), fmt.Sprintf("photo_%d.jpg", msg.ID), string(domain.JPEG)
	}

	return "", "", ""
}

// findLargestImage returns the biggest rendition telegram offers that is still within the upload limit.
func findLargestImage(photos []models.PhotoSize) string {
	best := -1
	for i, photo := range photos {
		if photo.FileSize > domain.MaxImageBytes {
			continue
		}
		if best < 0 || photo.Width*photo.Height > photos[best].Width*photos[best].Height {
			best = i
		}
	}

	if best < 0 {
		return photos[0].FileID
	}

	return photos[best].FileID
}

func getUserNameOrFirstName(user *models.User) string {
	if user == nil {
		return ""
	}

	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
