package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/WauDev/telegram-bot-control-acces/internal/auth"
	"github.com/WauDev/telegram-bot-control-acces/internal/catalog"
	"github.com/WauDev/telegram-bot-control-acces/internal/domain"
	"github.com/WauDev/telegram-bot-control-acces/internal/feature/owner"
	"github.com/WauDev/telegram-bot-control-acces/internal/store"
)

type stubCatalog struct {
	snapshot catalog.Catalog
	err      error
}

func (s *stubCatalog) Load(ctx context.Context) (catalog.Catalog, error) {
	if s.err != nil {
		return catalog.Catalog{}, s.err
	}
	return s.snapshot, nil
}

// newTestDispatcher wires a dispatcher over real auth/owner components, a
// memory store, and the given catalog snapshot.
func newTestDispatcher(t *testing.T, levels map[int][]catalog.Entry) (*Dispatcher, *store.MemStore, *stubCatalog) {
	t.Helper()

	hookLogger, _ := logtest.NewNullLogger()
	logger := logrus.NewEntry(hookLogger)

	st := store.NewMemStore()
	loader := &stubCatalog{snapshot: catalog.NewCatalog(levels)}

	d := NewDispatcher(
		owner.NewResolver(st, 0, logger),
		auth.NewEngine(loader, logger),
		logger,
	)

	return d, st, loader
}

func admitUser(t *testing.T, st *store.MemStore, chatID, userID int64, level int) {
	t.Helper()

	ctx := context.Background()
	db, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("loading store failed: %v", err)
	}

	chat, ok := db.Chats[domain.ChatKey(chatID)]
	if !ok {
		chat = domain.ChatRecord{Users: map[string]domain.UserRecord{}}
	}
	chat.Users[domain.UserKey(userID)] = domain.UserRecord{UserID: userID, AccessLevel: level}
	db.Chats[domain.ChatKey(chatID)] = chat

	if err := st.Save(ctx, db); err != nil {
		t.Fatalf("saving store failed: %v", err)
	}
}

func TestDispatchRejectsTextWithoutMarker(t *testing.T) {
	d, st, _ := newTestDispatcher(t, nil)

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "hello")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if resp != ResponseMarkerError {
		t.Fatalf("expected marker error response, got %q", resp)
	}

	db, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("loading store failed: %v", err)
	}
	if len(db.Chats) != 0 {
		t.Fatalf("expected no store mutation for plain text, got %v", db.Chats)
	}
}

func TestDispatchDeniesUnregisteredUserWithRequiredLevel(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[int][]catalog.Entry{
		1: {"/help - show help"},
		2: {"/register - register"},
	})

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/register")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	want := "This command is available from level 2\nYour current level is: 0"
	if resp != want {
		t.Fatalf("expected %q, got %q", want, resp)
	}
}

func TestDispatchDenialReportsCurrentLevel(t *testing.T) {
	d, st, _ := newTestDispatcher(t, map[int][]catalog.Entry{
		1: {"/help - show help"},
		2: {"/register - register"},
	})
	admitUser(t, st, -1, 42, 1)

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/register")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	want := "This command is available from level 2\nYour current level is: 1"
	if resp != want {
		t.Fatalf("expected %q, got %q", want, resp)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[int][]catalog.Entry{1: {"/help"}})

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/frobnicate")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if resp != ResponseUnknown {
		t.Fatalf("expected unknown-command response, got %q", resp)
	}
}

func TestDispatchInvokesBoundHandler(t *testing.T) {
	d, st, _ := newTestDispatcher(t, map[int][]catalog.Entry{1: {"/ping"}})
	admitUser(t, st, -1, 42, 1)

	var gotChat, gotUser int64
	var gotName string
	d.Handle("/ping", func(ctx context.Context, chatID, userID int64, firstName string) (string, error) {
		gotChat, gotUser, gotName = chatID, userID, firstName
		return "pong", nil
	})

	// Arguments after the token are ignored for resolution.
	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/ping now please")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if resp != "pong" {
		t.Fatalf("expected handler response, got %q", resp)
	}
	if gotChat != -1 || gotUser != 42 || gotName != "Alice" {
		t.Fatalf("handler got (%d, %d, %q)", gotChat, gotUser, gotName)
	}
}

func TestDispatchAllowedButUnboundTokenIsUnknown(t *testing.T) {
	d, st, _ := newTestDispatcher(t, map[int][]catalog.Entry{1: {"/mystery"}})
	admitUser(t, st, -1, 42, 1)

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/mystery")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if resp != ResponseUnknown {
		t.Fatalf("expected unknown-command response for unbound token, got %q", resp)
	}
}

func TestDispatchFallbackLevelAppliesWhenUncataloged(t *testing.T) {
	d, _, _ := newTestDispatcher(t, nil)

	d.HandleWithFallback("/help", domain.LevelUnregistered, func(context.Context, int64, int64, string) (string, error) {
		return "help text", nil
	})
	d.HandleWithFallback("/stats", domain.LevelOwner, func(context.Context, int64, int64, string) (string, error) {
		return "stats text", nil
	})

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/help")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if resp != "help text" {
		t.Fatalf("expected fallback-gated handler to run, got %q", resp)
	}

	resp, err = d.Dispatch(context.Background(), -1, 42, "Alice", "/stats")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	want := "This command is available from level 9\nYour current level is: 0"
	if resp != want {
		t.Fatalf("expected fallback denial, got %q", resp)
	}
}

func TestDispatchCatalogOverridesFallbackLevel(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[int][]catalog.Entry{3: {"/help"}})

	d.HandleWithFallback("/help", domain.LevelUnregistered, func(context.Context, int64, int64, string) (string, error) {
		return "help text", nil
	})

	resp, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/help")
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	want := "This command is available from level 3\nYour current level is: 0"
	if resp != want {
		t.Fatalf("expected catalog gating to win over the fallback, got %q", resp)
	}
}

func TestDispatchPropagatesCatalogError(t *testing.T) {
	d, _, loader := newTestDispatcher(t, nil)
	loader.err = errors.New("catalog unreadable")

	if _, err := d.Dispatch(context.Background(), -1, 42, "Alice", "/help"); err == nil {
		t.Fatalf("expected catalog error to propagate")
	}
}
