// Package registration admits users into a chat's user table exactly once.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
	"github.com/WauDev/telegram-bot-control-acces/internal/store"
)

// Registrar performs first-seen admission against the user store.
type Registrar struct {
	store  store.Store
	logger *logrus.Entry
	now    func() time.Time
}

// NewRegistrar constructs a Registrar over the provided store.
func NewRegistrar(st store.Store, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Register admits the user into the chat at the given access level. It returns
// true when a record was created and false when the user was already
// registered; repeated calls never alter the stored record. Passive admission
// uses domain.LevelMember, explicit /register uses domain.LevelRegistered.
func (r *Registrar) Register(ctx context.Context, chatID, userID int64, firstName string, level int) (bool, error) {
	if r == nil || r.store == nil {
		return false, errors.New("registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if chatID == 0 {
		return false, errors.New("chat id is required")
	}
	if userID == 0 {
		return false, errors.New("user id is required")
	}
	if level < 0 {
		return false, fmt.Errorf("invalid access level %d", level)
	}

	db, err := r.store.Load(ctx)
	if err != nil {
		return false, err
	}

	chatKey := domain.ChatKey(chatID)
	userKey := domain.UserKey(userID)

	chat, ok := db.Chats[chatKey]
	if !ok {
		chat = domain.ChatRecord{Users: map[string]domain.UserRecord{}}
	}
	if chat.Users == nil {
		chat.Users = map[string]domain.UserRecord{}
	}

	if _, exists := chat.Users[userKey]; exists {
		r.logger.WithFields(logging.Fields{
			"event":   "user_seen",
			"chat_id": chatID,
			"user_id": userID,
		}).Debug("user already registered")

		return false, nil
	}

	chat.Users[userKey] = domain.UserRecord{
		UserID:       userID,
		FirstName:    firstName,
		AccessLevel:  level,
		RegisteredAt: r.now().UTC().Format(time.RFC3339),
	}
	db.Chats[chatKey] = chat

	if err := r.store.Save(ctx, db); err != nil {
		return false, err
	}

	r.logger.WithFields(logging.Fields{
		"event":        "user_registered",
		"chat_id":      chatID,
		"user_id":      userID,
		"access_level": level,
	}).Info("registered new user")

	return true, nil
}
