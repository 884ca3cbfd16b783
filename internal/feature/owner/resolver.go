// Package owner resolves a caller's effective access level, honoring the
// configured bot owner.
package owner

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
	"github.com/WauDev/telegram-bot-control-acces/internal/store"
)

// Resolver maps (chat, user) to an effective access level. The configured
// owner resolves to domain.LevelOwner in every chat regardless of any stored
// record; the store is per-chat, so the override lives here rather than in a
// global record.
type Resolver struct {
	store   store.Store
	ownerID int64
	logger  *logrus.Entry
}

// NewResolver constructs a Resolver. ownerID may be zero to disable the
// override.
func NewResolver(st store.Store, ownerID int64, logger *logrus.Entry) *Resolver {
	if logger == nil {
		logger = logging.Logger()
	}

	if ownerID != 0 {
		logger.WithFields(logging.Fields{
			"event":    "owner_override",
			"owner_id": ownerID,
		}).Info("owner access-level override configured")
	}

	return &Resolver{
		store:   st,
		ownerID: ownerID,
		logger:  logger,
	}
}

// Level returns the caller's effective access level, falling back to
// domain.LevelUnregistered when no record exists.
func (r *Resolver) Level(ctx context.Context, chatID, userID int64) (int, error) {
	if r == nil || r.store == nil {
		return 0, errors.New("level resolver is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	if r.ownerID != 0 && userID == r.ownerID {
		return domain.LevelOwner, nil
	}

	record, found, err := r.store.Lookup(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return domain.LevelUnregistered, nil
	}

	return record.AccessLevel, nil
}
