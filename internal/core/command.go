package core

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSay broadcasts the body to every listener.
	CommandSay CommandKind = iota
	// CommandOnline replies with the identities currently online.
	CommandOnline
	// CommandLogout takes the sender offline.
	CommandLogout
	// CommandUnknown is any token without a handler.
	CommandUnknown
)

var commandTokens = map[string]CommandKind{
	"say":    CommandSay,
	"online": CommandOnline,
	"logout": CommandLogout,
}

// Command is a parsed message body.
type Command struct {
	Kind  CommandKind
	Token string
	Body  string
}

// ParseCommand splits a leading "/token" off raw. A body without a token,
// including a bare "/", is a say command carrying raw unchanged.
func ParseCommand(raw string) Command {
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CommandSay, Token: "say", Body: raw}
	}

	// "/ online" names the same command as "/online".
	rest := strings.TrimLeftFunc(trimmed[1:], unicode.IsSpace)
	if rest == "" {
		return Command{Kind: CommandSay, Token: "say", Body: raw}
	}
	token, body := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		token = rest[:i]
		body = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
	}

	kind, ok := commandTokens[token]
	if !ok {
		kind = CommandUnknown
	}
	return Command{Kind: kind, Token: token, Body: body}
}

// CommandResult is what a command hands back to the caller.
type CommandResult struct {
	// Message is the reply for the sender, if any. For a broadcast it is the
	// broadcast message itself.
	Message *Message
	// Broadcast is set when Message was published to all listeners.
	Broadcast bool
	// Logout is set when the caller should drop the sender's session.
	Logout bool
}

type commandHandler func(user User, cmd Command) CommandResult

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	engine   *Engine
	presence *PresenceRegistry
	handlers map[CommandKind]commandHandler
	now      func() time.Time
	log      *zerolog.Logger
}

// NewDispatcher creates a dispatcher publishing through engine.
func NewDispatcher(engine *Engine, presence *PresenceRegistry, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := &Dispatcher{
		engine:   engine,
		presence: presence,
		now:      time.Now,
		log:      logger,
	}
	d.handlers = map[CommandKind]commandHandler{
		CommandSay:    d.say,
		CommandOnline: d.online,
		CommandLogout: d.logout,
	}
	return d
}

// Dispatch parses raw and runs the matching handler for user.
func (d *Dispatcher) Dispatch(user User, raw string) CommandResult {
	cmd := ParseCommand(raw)
	handler, ok := d.handlers[cmd.Kind]
	if !ok {
		return d.unknown(user, cmd)
	}
	return handler(user, cmd)
}

func (d *Dispatcher) say(user User, cmd Command) CommandResult {
	msg := NewMessage(user, cmd.Body, d.now())
	d.engine.Publish(msg)
	return CommandResult{Message: &msg, Broadcast: true}
}

func (d *Dispatcher) online(_ User, _ Command) CommandResult {
	users := d.presence.List()
	body := fmt.Sprintf("%d online: %s", len(users), strings.Join(users, ", "))
	msg := NewMessage(User{Nick: SystemSender}, body, d.now())
	return CommandResult{Message: &msg}
}

func (d *Dispatcher) logout(user User, _ Command) CommandResult {
	d.presence.Remove(user.Nick)
	d.log.Info().Str("nick", user.Nick).Msg("user logged out")
	return CommandResult{Logout: true}
}

func (d *Dispatcher) unknown(user User, cmd Command) CommandResult {
	d.log.Debug().Str("nick", user.Nick).Str("token", cmd.Token).Msg("unknown command")
	msg := NewMessage(User{Nick: SystemSender}, "unknown command: "+cmd.Token, d.now())
	return CommandResult{Message: &msg}
}
