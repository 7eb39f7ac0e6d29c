package command

import (
	"errors"
	"pixelperfect/internal/core/port"
	"strings"

	"github.com/rs/zerolog/log"
)

type Registry struct {
	commands map[string]port.Command
	order    []port.Command
}

func (r *Registry) Register(handler port.Command) {
	if r.commands == nil {
		r.commands = make(map[string]port.Command)
	}

	log.Info().Str("handler", handler.GetCommand()).Msg("adding command handler to registry")
	if _, exists := r.commands[handler.GetCommand()]; !exists {
		r.order = append(r.order, handler)
	}
	r.commands[handler.GetCommand()] = handler
}

func (r *Registry) Get(command string) (port.Command, error) {
	log.Debug().Str("command", command).Msg("fetching command handler from registry")

	if r.commands == nil {
		err := errors.New("can't fetch command, registry not initialized")
		return nil, err
	}

	handler, ok := r.commands[command]
	if !ok {
		return nil, errors.New("command not found")
	}

	return handler, nil
}

// ListCommands returns the registered handlers in registration order.
func (r *Registry) ListCommands() []port.Command {
	list := make([]port.Command, 0, len(r.order))
	for _, c := range r.order {
		list = append(list, r.commands[c.GetCommand()])
	}

	return list
}

func ParseCommandArgs(args string) string {
	command := strings.Fields(args)
	if len(command) < 2 {
		return ""
	}
	return strings.Join(command[1:], " ")
}

// ParseCommand returns the lower-cased first word with any "@botname" suffix removed.
func ParseCommand(args string) string {
	command := strings.Fields(args)
	if len(command) == 0 {
		return ""
	}

	name, _, _ := strings.Cut(command[0], "@")
	return strings.ToLower(name)
}
