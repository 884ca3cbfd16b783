// Package dispatch routes command-shaped messages through the authorization
// engine to their handlers and renders every outcome as one response text.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/auth"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
)

// CommandMarker prefixes every command token.
const CommandMarker = "/"

// Fixed response texts.
const (
	ResponseMarkerError  = "Error: command must start with '/'"
	ResponseUnknown      = "Unknown command."
	responseDeniedFormat = "This command is available from level %d\nYour current level is: %d"
)

// HandlerFunc produces the response text for an authorized command.
type HandlerFunc func(ctx context.Context, chatID, userID int64, firstName string) (string, error)

// LevelResolver yields the caller's effective access level.
type LevelResolver interface {
	Level(ctx context.Context, chatID, userID int64) (int, error)
}

// Authorizer gates a command against an access level.
type Authorizer interface {
	Authorize(ctx context.Context, userLevel int, command string) (auth.Decision, error)
}

// binding pairs a handler with an optional static gating level. The static
// level applies only when the catalog does not list the command; a catalog
// entry is always the source of truth.
type binding struct {
	fn          HandlerFunc
	staticLevel int
	hasStatic   bool
}

// Dispatcher owns the command table and the dispatch state machine.
type Dispatcher struct {
	levels   LevelResolver
	engine   Authorizer
	handlers map[string]binding
	logger   *logrus.Entry
}

// NewDispatcher constructs a Dispatcher with an empty command table.
func NewDispatcher(levels LevelResolver, engine Authorizer, logger *logrus.Entry) *Dispatcher {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Dispatcher{
		levels:   levels,
		engine:   engine,
		handlers: map[string]binding{},
		logger:   logger,
	}
}

// Handle binds a catalog-gated handler to a command token, replacing any
// previous binding. The command is unusable until the catalog lists it.
func (d *Dispatcher) Handle(command string, fn HandlerFunc) {
	if d == nil || strings.TrimSpace(command) == "" || fn == nil {
		return
	}

	d.handlers[command] = binding{fn: fn}
}

// HandleWithFallback binds a handler that stays available from the given
// level when the catalog does not list the command.
func (d *Dispatcher) HandleWithFallback(command string, level int, fn HandlerFunc) {
	if d == nil || strings.TrimSpace(command) == "" || fn == nil {
		return
	}

	d.handlers[command] = binding{fn: fn, staticLevel: level, hasStatic: true}
}

// Dispatch processes one inbound message text and returns exactly one
// response. Unanticipated failures (store or catalog I/O) surface as errors;
// every policy outcome is a deterministic text.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID, userID int64, firstName, text string) (string, error) {
	if d == nil || d.levels == nil || d.engine == nil {
		return "", errors.New("dispatcher is not initialized")
	}
	if ctx == nil {
		return "", errors.New("context is required")
	}

	if !strings.HasPrefix(text, CommandMarker) {
		return ResponseMarkerError, nil
	}

	command := firstToken(text)

	level, err := d.levels.Level(ctx, chatID, userID)
	if err != nil {
		return "", err
	}

	decision, err := d.engine.Authorize(ctx, level, command)
	if err != nil {
		return "", err
	}

	bnd, bound := d.handlers[command]

	allowed := decision.Allowed
	required := decision.RequiredLevel
	known := decision.RequiredKnown
	if !known && bound && bnd.hasStatic {
		known = true
		required = bnd.staticLevel
		allowed = bnd.staticLevel <= level
	}

	entry := d.logger.WithFields(logging.Fields{
		"chat_id":    chatID,
		"user_id":    userID,
		"command":    command,
		"user_level": level,
	})

	if !allowed {
		if !known {
			entry.WithField("event", "command_unknown").Info("command not in catalog")
			return ResponseUnknown, nil
		}

		entry.WithFields(logging.Fields{
			"event":          "command_denied",
			"required_level": required,
		}).Info("command denied")

		return fmt.Sprintf(responseDeniedFormat, required, level), nil
	}

	if !bound {
		entry.WithField("event", "command_unbound").Warn("allowed command has no handler")
		return ResponseUnknown, nil
	}

	entry.WithField("event", "command_allowed").Info("dispatching command")

	return bnd.fn(ctx, chatID, userID, firstName)
}

// firstToken returns the text up to the first whitespace rune.
func firstToken(text string) string {
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		return text[:idx]
	}

	return text
}
