// Package telegram hosts the Telegram client, update filtering, and reply
// delivery.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/config"
	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
)

// fallbackSenderName substitutes a missing first name.
const fallbackSenderName = "Unknown sender"

type botClient interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
	}

	createBot = func(token string, options ...bot.Option) (botClient, error) {
		return bot.New(token, options...)
	}
)

// Registrar is the slice of the registration service used for passive
// first-seen admission.
type Registrar interface {
	Register(ctx context.Context, chatID, userID int64, firstName string, level int) (bool, error)
}

// Dispatcher turns a command-shaped message into one response text.
type Dispatcher interface {
	Dispatch(ctx context.Context, chatID, userID int64, firstName, text string) (string, error)
}

// Client wraps the Telegram bot instance and the message-processing
// dependencies.
type Client struct {
	bot        botClient
	logger     *logrus.Entry
	registrar  Registrar
	dispatcher Dispatcher
}

// Option customizes a Client before the underlying bot is created.
type Option func(*Client)

// WithRegistrar wires the passive registration service.
func WithRegistrar(registrar Registrar) Option {
	return func(c *Client) {
		c.registrar = registrar
	}
}

// WithDispatcher wires the command dispatcher.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(c *Client) {
		c.dispatcher = dispatcher
	}
}

// NewClient initializes the Telegram bot with long polling and the message
// handler.
func NewClient(cfg config.Config, logger *logrus.Entry, options ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}
	for _, opt := range options {
		opt(client)
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot

	return client, nil
}

// Start begins receiving updates via long polling until the context is
// canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// handleUpdate processes one inbound message end to end: chat-type filter,
// passive registration, command dispatch, reply.
func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if msg.Chat.Type == models.ChatTypePrivate {
		c.logger.WithFields(logging.Fields{
			"event":   "private_ignored",
			"chat_id": chatID,
		}).Info("ignoring private chat message")
		return
	}

	if msg.From == nil || msg.From.ID == 0 {
		c.logger.WithFields(logging.Fields{
			"event":     "sender_missing",
			"chat_id":   chatID,
			"chat_type": msg.Chat.Type,
		}).Info("dropping update without a resolvable sender")
		return
	}

	userID := msg.From.ID
	firstName := msg.From.FirstName
	if strings.TrimSpace(firstName) == "" {
		firstName = fallbackSenderName
	}

	c.logger.WithFields(logging.Fields{
		"event":     "message_received",
		"chat_id":   chatID,
		"chat_type": msg.Chat.Type,
		"user_id":   userID,
		"text":      text,
	}).Info("telegram message received")

	if c.registrar != nil {
		created, err := c.registrar.Register(ctx, chatID, userID, firstName, domain.LevelMember)
		if err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "registration_error",
				"chat_id": chatID,
				"user_id": userID,
			}).WithError(err).Error("passive registration failed")
		} else if created {
			c.logger.WithFields(logging.Fields{
				"event":   "user_admitted",
				"chat_id": chatID,
				"user_id": userID,
			}).Info("admitted first-seen user")
		}
	}

	if text == "" || c.dispatcher == nil {
		return
	}

	response, err := c.dispatcher.Dispatch(ctx, chatID, userID, firstName, text)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "dispatch_error",
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Error("command dispatch failed")
		return
	}

	c.send(ctx, chatID, response)
}

// send delivers a reply fire-and-forget; delivery errors are logged only.
func (c *Client) send(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}

	if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "send_error",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send telegram message")
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
