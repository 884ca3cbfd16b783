package store

import (
	"context"
	"errors"
)

// StatsProvider exposes helper methods to retrieve store-wide counts for basic
// diagnostics without leaking store internals to callers.
type StatsProvider struct {
	store Store
}

// NewStatsProvider constructs a StatsProvider backed by the provided store.
func NewStatsProvider(store Store) *StatsProvider {
	return &StatsProvider{store: store}
}

// CountChats returns the number of chats known to the store.
func (p *StatsProvider) CountChats(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.store == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	db, err := p.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	return int64(len(db.Chats)), nil
}

// CountUsers returns the number of registered users across every chat.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.store == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	db, err := p.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, chat := range db.Chats {
		total += int64(len(chat.Users))
	}

	return total, nil
}
