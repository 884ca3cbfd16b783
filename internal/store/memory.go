package store

import (
	"context"
	"errors"
	"sync"

	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
)

// MemStore is a mutex-guarded in-memory Store. It backs tests and ephemeral
// runs where no file should be written.
type MemStore struct {
	mu sync.Mutex
	db domain.Database
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{db: domain.NewDatabase()}
}

// Load returns a deep copy of the current database.
func (s *MemStore) Load(ctx context.Context) (domain.Database, error) {
	if s == nil {
		return domain.Database{}, errors.New("memory store is not initialized")
	}
	if ctx == nil {
		return domain.Database{}, errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return copyDatabase(s.db), nil
}

// Save replaces the current database with a deep copy of the given one.
func (s *MemStore) Save(ctx context.Context, db domain.Database) error {
	if s == nil {
		return errors.New("memory store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.db = copyDatabase(db)
	return nil
}

// Lookup fetches a single user record.
func (s *MemStore) Lookup(ctx context.Context, chatID, userID int64) (domain.UserRecord, bool, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return domain.UserRecord{}, false, err
	}

	return lookup(db, chatID, userID)
}

// Ping always succeeds for an initialized memory store.
func (s *MemStore) Ping(ctx context.Context) error {
	if s == nil {
		return errors.New("memory store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return nil
}

func copyDatabase(db domain.Database) domain.Database {
	out := domain.NewDatabase()
	for chatKey, chat := range db.Chats {
		users := make(map[string]domain.UserRecord, len(chat.Users))
		for userKey, user := range chat.Users {
			users[userKey] = user
		}
		out.Chats[chatKey] = domain.ChatRecord{Users: users}
	}

	return out
}
