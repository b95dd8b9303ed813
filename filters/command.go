package filters

import (
	"context"
	"strings"

	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/updates"
)

// CommandsInfo documents one command for help/menu generation.
type CommandsInfo struct {
	Commands []string
	Info     string
}

// ParsedCommand is the result of parsing one "[@bot] <prefix>cmd [args]"
// message body.
type ParsedCommand struct {
	BotUsername string // without leading "@"; empty when not mentioned
	Command     string // including prefix, as typed
	Args        []string
}

// ParseCommand splits text into an optional bot mention, the prefixed
// command token, and the remaining whitespace-split arguments. It
// returns false when text does not have the "[@bot] <prefix>..." shape.
func ParseCommand(text, prefix string) (ParsedCommand, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ParsedCommand{}, false
	}

	if strings.HasPrefix(fields[0], prefix) {
		return ParsedCommand{Command: fields[0], Args: fields[1:]}, true
	}
	if strings.HasPrefix(fields[0], "@") && len(fields) >= 2 && strings.HasPrefix(fields[1], prefix) {
		return ParsedCommand{
			BotUsername: strings.TrimPrefix(fields[0], "@"),
			Command:     fields[1],
			Args:        fields[2:],
		}, true
	}
	return ParsedCommand{}, false
}

// CommandOptions configures IsCommand and Command.
type CommandOptions struct {
	Prefix               string // default "/"
	CheckCase            bool   // default false: commands match case-insensitively
	OnlyWithBotUsername   bool   // default false: require an "@bot" mention
}

func (o CommandOptions) prefix() string {
	if o.Prefix == "" {
		return "/"
	}
	return o.Prefix
}

// IsCommand matches a message_created update whose text names one of
// commands, after stripping the configured prefix.
type IsCommand struct {
	commands map[string]bool
	opts     CommandOptions
}

// NewIsCommand builds an IsCommand filter.
func NewIsCommand(opts CommandOptions, commands ...string) *IsCommand {
	set := make(map[string]bool, len(commands))
	for _, c := range commands {
		if !opts.CheckCase {
			c = strings.ToLower(c)
		}
		set[c] = true
	}
	return &IsCommand{commands: set, opts: opts}
}

func (f *IsCommand) Evaluate(_ context.Context, u *updates.Update, _ *fsm.Context) (bool, map[string]any, error) {
	if u.Kind != updates.KindMessageCreated || u.MessageCreated.Message.Body.Text == nil {
		return false, nil, nil
	}
	text := strings.TrimSpace(*u.MessageCreated.Message.Body.Text)
	if text == "" {
		return false, nil, nil
	}
	if !f.opts.CheckCase {
		text = strings.ToLower(text)
	}

	parsed, ok := ParseCommand(text, f.opts.prefix())
	if !ok {
		return false, nil, nil
	}
	if f.opts.OnlyWithBotUsername && parsed.BotUsername == "" {
		return false, nil, nil
	}

	name := strings.TrimPrefix(parsed.Command, f.opts.prefix())
	return f.commands[name], nil, nil
}

var _ Filter = (*IsCommand)(nil)

// ProvideCommand re-parses the original (unmodified-case) message text
// and injects the parsed argument list into Args.Extra["args"], mirroring
// the IsCommand match this filter is always paired with.
type ProvideCommand struct {
	prefix string
}

// NewProvideCommand builds a ProvideCommand middleware-filter for prefix.
func NewProvideCommand(prefix string) *ProvideCommand {
	if prefix == "" {
		prefix = "/"
	}
	return &ProvideCommand{prefix: prefix}
}

func (f *ProvideCommand) Evaluate(_ context.Context, u *updates.Update, _ *fsm.Context) (bool, map[string]any, error) {
	if u.Kind != updates.KindMessageCreated || u.MessageCreated.Message.Body.Text == nil {
		return true, nil, nil
	}
	text := strings.TrimSpace(*u.MessageCreated.Message.Body.Text)
	parsed, ok := ParseCommand(text, f.prefix)
	if !ok {
		return true, nil, nil
	}
	return true, map[string]any{"args": parsed.Args, "command": strings.TrimPrefix(parsed.Command, f.prefix)}, nil
}

var _ Filter = (*ProvideCommand)(nil)

// Command builds the (IsCommand, ProvideCommand) pair a handler
// registers together, matching one of commands and injecting parsed
// arguments.
func Command(opts CommandOptions, commands ...string) (*IsCommand, *ProvideCommand) {
	return NewIsCommand(opts, commands...), NewProvideCommand(opts.prefix())
}

// CommandStart is Command("start", ...), the conventional entry point for
// a bot dialog.
func CommandStart(opts CommandOptions) (*IsCommand, *ProvideCommand) {
	return Command(opts, "start")
}
