// Package store encapsulates the persisted user store and its backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
)

// Store is the capability surface of the user store. Every operation works on
// the full database snapshot: mutations are a read-modify-write of the whole
// store, which is safe only under a single writer. A backend with real
// transactions can replace FileStore without touching callers.
type Store interface {
	Load(ctx context.Context) (domain.Database, error)
	Save(ctx context.Context, db domain.Database) error
	Lookup(ctx context.Context, chatID, userID int64) (domain.UserRecord, bool, error)
	Ping(ctx context.Context) error
}

// FileStore persists the database as one JSON file, rewritten whole on every
// save. A missing file is an empty store, never an error; malformed JSON
// propagates to the caller.
type FileStore struct {
	path   string
	logger *logrus.Entry
}

// NewFileStore constructs a FileStore for the given path.
func NewFileStore(path string, logger *logrus.Entry) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &FileStore{
		path:   path,
		logger: logger,
	}, nil
}

// Load reads the full database from disk.
func (s *FileStore) Load(ctx context.Context) (domain.Database, error) {
	if s == nil || s.path == "" {
		return domain.Database{}, errors.New("file store is not initialized")
	}
	if ctx == nil {
		return domain.Database{}, errors.New("context is required")
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewDatabase(), nil
		}
		return domain.Database{}, fmt.Errorf("read user store: %w", err)
	}

	var db domain.Database
	if err := json.Unmarshal(raw, &db); err != nil {
		return domain.Database{}, fmt.Errorf("parse user store: %w", err)
	}

	if db.Chats == nil {
		db.Chats = map[string]domain.ChatRecord{}
	}

	return db, nil
}

// Save serializes the database and overwrites the backing file.
func (s *FileStore) Save(ctx context.Context, db domain.Database) error {
	if s == nil || s.path == "" {
		return errors.New("file store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize user store: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write user store: %w", err)
	}

	s.logger.WithFields(logging.Fields{
		"event": "store_saved",
		"path":  s.path,
		"chats": len(db.Chats),
	}).Debug("user store rewritten")

	return nil
}

// Lookup fetches a single user record.
func (s *FileStore) Lookup(ctx context.Context, chatID, userID int64) (domain.UserRecord, bool, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return domain.UserRecord{}, false, err
	}

	return lookup(db, chatID, userID)
}

// Ping reports whether the backing file is readable and parseable. A missing
// file is healthy.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

func lookup(db domain.Database, chatID, userID int64) (domain.UserRecord, bool, error) {
	chat, ok := db.Chats[domain.ChatKey(chatID)]
	if !ok {
		return domain.UserRecord{}, false, nil
	}

	user, ok := chat.Users[domain.UserKey(userID)]
	if !ok {
		return domain.UserRecord{}, false, nil
	}

	return user, true, nil
}
