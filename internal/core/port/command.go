package port

import (
	"context"
	"pixelperfect/internal/core/domain"
	"time"
)

type Command interface {
	// Respond handles a chat message within timeout and replies to its chat.
	Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error
	// GetCommand returns the slash command this handler answers to, e.g. "/upscale".
	GetCommand() string
	// Usage returns a one-line description shown by /help.
	Usage() string
}

type CommandRegistry interface {
	Register(handler Command)
	// Get returns the handler registered for command or an error if there is none.
	Get(command string) (Command, error)
	// ListCommands returns the registered commands in registration order.
	ListCommands() []Command
}
