package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/store"
)

func newTestRegistrar(t *testing.T) (*Registrar, *store.MemStore) {
	t.Helper()

	hookLogger, _ := logtest.NewNullLogger()
	st := store.NewMemStore()

	registrar := NewRegistrar(st, logrus.NewEntry(hookLogger))
	registrar.now = func() time.Time {
		return time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	}

	return registrar, st
}

func TestRegisterAdmitsNewUser(t *testing.T) {
	registrar, st := newTestRegistrar(t)
	ctx := context.Background()

	created, err := registrar.Register(ctx, -100200, 42, "Alice", domain.LevelMember)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true for new user")
	}

	record, found, err := st.Lookup(ctx, -100200, 42)
	if err != nil || !found {
		t.Fatalf("expected stored record, found=%v err=%v", found, err)
	}

	if record.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", record.UserID)
	}
	if record.FirstName != "Alice" {
		t.Fatalf("expected first name Alice, got %q", record.FirstName)
	}
	if record.AccessLevel != domain.LevelMember {
		t.Fatalf("expected access level %d, got %d", domain.LevelMember, record.AccessLevel)
	}
	if record.RegisteredAt != "2024-09-01T10:00:00Z" {
		t.Fatalf("unexpected registration timestamp %q", record.RegisteredAt)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	registrar, st := newTestRegistrar(t)
	ctx := context.Background()

	created, err := registrar.Register(ctx, -100200, 42, "Alice", domain.LevelMember)
	if err != nil || !created {
		t.Fatalf("first Register: created=%v err=%v", created, err)
	}

	after, _, err := st.Lookup(ctx, -100200, 42)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}

	// A repeat at a different level and name must not touch the record.
	created, err = registrar.Register(ctx, -100200, 42, "Alicia", domain.LevelRegistered)
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for repeated registration")
	}

	record, _, err := st.Lookup(ctx, -100200, 42)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if record != after {
		t.Fatalf("expected record to be unchanged, got %+v vs %+v", record, after)
	}
}

func TestRegisterKeepsChatsSeparate(t *testing.T) {
	registrar, st := newTestRegistrar(t)
	ctx := context.Background()

	if _, err := registrar.Register(ctx, -1, 42, "Alice", domain.LevelMember); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := registrar.Register(ctx, -2, 42, "Alice", domain.LevelRegistered); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	first, _, err := st.Lookup(ctx, -1, 42)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	second, _, err := st.Lookup(ctx, -2, 42)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}

	if first.AccessLevel != domain.LevelMember || second.AccessLevel != domain.LevelRegistered {
		t.Fatalf("expected per-chat levels 1 and 2, got %d and %d", first.AccessLevel, second.AccessLevel)
	}
}

func TestRegisterValidatesArguments(t *testing.T) {
	registrar, _ := newTestRegistrar(t)
	ctx := context.Background()

	if _, err := registrar.Register(ctx, 0, 42, "Alice", domain.LevelMember); err == nil {
		t.Fatalf("expected missing chat id to error")
	}
	if _, err := registrar.Register(ctx, -1, 0, "Alice", domain.LevelMember); err == nil {
		t.Fatalf("expected missing user id to error")
	}
	if _, err := registrar.Register(ctx, -1, 42, "Alice", -1); err == nil {
		t.Fatalf("expected negative level to error")
	}
	if _, err := registrar.Register(nil, -1, 42, "Alice", domain.LevelMember); err == nil {
		t.Fatalf("expected nil context to error")
	}
}

type failingStore struct {
	*store.MemStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, db domain.Database) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemStore.Save(ctx, db)
}

func TestRegisterPropagatesSaveError(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	expected := errors.New("disk full")
	st := &failingStore{MemStore: store.NewMemStore(), saveErr: expected}

	registrar := NewRegistrar(st, logrus.NewEntry(hookLogger))

	if _, err := registrar.Register(context.Background(), -1, 42, "Alice", domain.LevelMember); !errors.Is(err, expected) {
		t.Fatalf("expected save error, got %v", err)
	}
}
