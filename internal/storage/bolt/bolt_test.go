package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harybot/breakroom/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "breakroom.bolt"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadEmptyStore(t *testing.T) {
	store := openTestStore(t)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Users) != 0 || len(snap.Order) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	snap := storage.NewSnapshot()
	a := snap.Ensure("1001")
	a.DisplayName = "User A"
	a.Counter(storage.ActionEat).Total = 2
	a.Counter(storage.ActionEat).Today = 1
	a.Counter(storage.ActionEat).Day = "2026-08-30"
	b := snap.Ensure("1002")
	b.DisplayName = "User B"
	b.Open = &storage.OpenSession{
		Action:    storage.ActionSmoke,
		StartedAt: time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
	}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Version != storage.SnapshotVersion {
		t.Errorf("version = %d", got.Version)
	}
	if len(got.Order) != 2 || got.Order[0] != "1001" || got.Order[1] != "1002" {
		t.Errorf("order = %v", got.Order)
	}
	if c := got.User("1001").Counters[storage.ActionEat]; c == nil || c.Total != 2 {
		t.Errorf("counter = %+v", c)
	}
	if open := got.User("1002").Open; open == nil || open.Action != storage.ActionSmoke {
		t.Errorf("open session = %+v", open)
	}
}

// A save fully replaces the previous snapshot, including users that
// disappeared from it.
func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	store := openTestStore(t)

	first := storage.NewSnapshot()
	first.Ensure("old").DisplayName = "Old User"
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := storage.NewSnapshot()
	second.Ensure("new").DisplayName = "New User"
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User("old") != nil {
		t.Error("stale user survived a full snapshot rewrite")
	}
	if got.User("new") == nil {
		t.Error("new user missing after save")
	}
}

func TestLoadRecoversUnorderedUsers(t *testing.T) {
	store := openTestStore(t)

	snap := storage.NewSnapshot()
	snap.Ensure("1001").DisplayName = "User A"
	snap.Ensure("1002").DisplayName = "User B"
	// Simulate an order list that lost an entry.
	snap.Order = []string{"1002"}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Order) != 2 {
		t.Fatalf("order = %v, want both users present", got.Order)
	}
	if got.Order[0] != "1002" {
		t.Errorf("recorded order must come first, got %v", got.Order)
	}
}
