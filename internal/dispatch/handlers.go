package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/WauDev/telegram-bot-control-acces/internal/catalog"
	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
)

// Built-in command tokens.
const (
	CommandRegister = "/register"
	CommandHelp     = "/help"
	CommandStats    = "/stats"
)

// Handler response texts.
const (
	responseRegistered        = "You have been registered successfully!"
	responseAlreadyRegistered = "You are already registered!"
	responseHelpHeader        = "Available commands:"
	responseHelpEmpty         = "No commands available."
	responseStatsFormat       = "Chats: %d\nUsers: %d"
)

// Registrar is the slice of the registration service the /register handler
// needs.
type Registrar interface {
	Register(ctx context.Context, chatID, userID int64, firstName string, level int) (bool, error)
}

// StatsProvider is the slice of the store diagnostics the /stats handler
// needs.
type StatsProvider interface {
	CountChats(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

// NewRegisterHandler returns the /register handler. Explicit self-registration
// admits at domain.LevelRegistered, a step above passive first-seen admission.
func NewRegisterHandler(registrar Registrar) HandlerFunc {
	return func(ctx context.Context, chatID, userID int64, firstName string) (string, error) {
		created, err := registrar.Register(ctx, chatID, userID, firstName, domain.LevelRegistered)
		if err != nil {
			return "", err
		}
		if !created {
			return responseAlreadyRegistered, nil
		}

		return responseRegistered, nil
	}
}

// NewHelpHandler returns the /help handler, listing every catalog entry the
// caller's level unlocks. Entries keep their inline comments.
func NewHelpHandler(levels LevelResolver, loader catalog.Loader) HandlerFunc {
	return func(ctx context.Context, chatID, userID int64, _ string) (string, error) {
		level, err := levels.Level(ctx, chatID, userID)
		if err != nil {
			return "", err
		}

		snapshot, err := loader.Load(ctx)
		if err != nil {
			return "", err
		}

		entries := snapshot.CommandsForLevel(level)
		if len(entries) == 0 {
			return responseHelpEmpty, nil
		}

		lines := make([]string, 0, len(entries)+1)
		lines = append(lines, responseHelpHeader)
		for _, entry := range entries {
			lines = append(lines, string(entry))
		}

		return strings.Join(lines, "\n"), nil
	}
}

// NewStatsHandler returns the /stats handler with store-wide counts.
func NewStatsHandler(stats StatsProvider) HandlerFunc {
	return func(ctx context.Context, _, _ int64, _ string) (string, error) {
		chats, err := stats.CountChats(ctx)
		if err != nil {
			return "", err
		}

		users, err := stats.CountUsers(ctx)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf(responseStatsFormat, chats, users), nil
	}
}
