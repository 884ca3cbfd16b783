// Package auth decides whether an access level unlocks a command.
package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/catalog"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
)

// Decision is the outcome of an authorization check. RequiredKnown is false
// when the catalog does not list the command at all, which is distinct from
// "listed but gated above the caller's level".
type Decision struct {
	Allowed       bool
	RequiredLevel int
	RequiredKnown bool
}

// Engine evaluates commands against a freshly loaded catalog on every call.
type Engine struct {
	catalog catalog.Loader
	logger  *logrus.Entry
}

// NewEngine constructs an Engine over the given catalog loader.
func NewEngine(loader catalog.Loader, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Engine{
		catalog: loader,
		logger:  logger,
	}
}

// Authorize reports whether userLevel unlocks the command. The catalog is
// re-read per call so catalog edits apply to the next message.
func (e *Engine) Authorize(ctx context.Context, userLevel int, command string) (Decision, error) {
	if e == nil || e.catalog == nil {
		return Decision{}, errors.New("authorization engine is not initialized")
	}
	if ctx == nil {
		return Decision{}, errors.New("context is required")
	}
	if command == "" {
		return Decision{}, errors.New("command is required")
	}

	snapshot, err := e.catalog.Load(ctx)
	if err != nil {
		return Decision{}, err
	}

	required, known := snapshot.RequiredLevel(command)
	if !known {
		e.logger.WithFields(logging.Fields{
			"event":   "authorize_unknown_command",
			"command": command,
		}).Debug("command not present in catalog")

		return Decision{}, nil
	}

	return Decision{
		Allowed:       required <= userLevel,
		RequiredLevel: required,
		RequiredKnown: true,
	}, nil
}
