package command

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"pixelperfect/internal/core/port"
	"strings"
	"time"
)

type Help struct {
	registry   port.CommandRegistry
	textSender port.TextSender
	command    string
}

func NewHelp(registry port.CommandRegistry, textSender port.TextSender, command string) *Help {
	return &Help{registry: registry, textSender: textSender, command: command}
}

func (h *Help) GetCommand() string {
	return h.command
}

func (h *Help) Usage() string {
	return "show this list"
}

func (h *Help) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, c := range h.registry.ListCommands() {
		fmt.Fprintf(&sb, "%s - %s\n", c.GetCommand(), c.Usage())
	}
	fmt.Fprintf(&sb, "\nImages must be PNG, JPEG or WebP and at most %d MB.", domain.MaxImageBytes>>20)

	return h.textSender.SendMessageReply(ctx, message, sb.String())
}
