package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/harybot/breakroom/internal/config"
	"github.com/harybot/breakroom/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := config.RedisConfig{
		Host:         mr.Addr(), // full "host:port" address
		Port:         0,         // not used when host contains the port
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestLoadEmptyStore(t *testing.T) {
	store, _ := setupTestStore(t)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Users) != 0 {
		t.Errorf("expected empty snapshot, got %d users", len(snap.Users))
	}
	if snap.Version != storage.SnapshotVersion {
		t.Errorf("version = %d, want %d", snap.Version, storage.SnapshotVersion)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)

	snap := storage.NewSnapshot()
	a := snap.Ensure("1001")
	a.DisplayName = "User A"
	a.Counter(storage.ActionRestroomShort).Total = 7
	a.Counter(storage.ActionRestroomShort).Today = 2
	a.Counter(storage.ActionRestroomShort).Day = "2026-08-30"
	a.Overtime = append(a.Overtime, storage.OvertimeEntry{
		Action:  storage.ActionRestroomShort,
		Minutes: 3,
		Day:     "2026-08-30",
	})
	b := snap.Ensure("1002")
	b.DisplayName = "User B"
	b.Open = &storage.OpenSession{
		Action:    storage.ActionEat,
		StartedAt: time.Date(2026, 8, 30, 11, 45, 0, 0, time.UTC),
	}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got.Order) != 2 || got.Order[0] != "1001" || got.Order[1] != "1002" {
		t.Errorf("order = %v", got.Order)
	}
	if c := got.User("1001").Counters[storage.ActionRestroomShort]; c == nil || c.Total != 7 || c.Today != 2 {
		t.Errorf("counter = %+v", c)
	}
	if len(got.User("1001").Overtime) != 1 {
		t.Errorf("overtime = %+v", got.User("1001").Overtime)
	}
	if open := got.User("1002").Open; open == nil || open.Action != storage.ActionEat {
		t.Errorf("open session = %+v", open)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	store, _ := setupTestStore(t)

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
	if len(got.Order) != 1 || got.Order[0] != "new" {
		t.Errorf("order = %v", got.Order)
	}
}

func TestLoadCorruptUser(t *testing.T) {
	store, mr := setupTestStore(t)

	mr.HSet("breakroom:users", "bad", "{not json")

	_, err := store.Load(context.Background())
	if !errors.Is(err, storage.ErrCorruptSnapshot) {
		t.Fatalf("err = %v, want ErrCorruptSnapshot", err)
	}
}
