package storage

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCounterRollover(t *testing.T) {
	c := &Counter{Today: 4, Total: 10, Day: "2026-08-29"}

	if got := c.TodayOn("2026-08-29"); got != 4 {
		t.Errorf("TodayOn(same day) = %d, want 4", got)
	}
	if got := c.TodayOn("2026-08-30"); got != 0 {
		t.Errorf("TodayOn(next day) = %d, want 0", got)
	}

	c.Touch("2026-08-30")
	if c.Today != 0 || c.Day != "2026-08-30" {
		t.Errorf("after touch: %+v", c)
	}
	if c.Total != 10 {
		t.Errorf("touch must not reset the all-time total, got %d", c.Total)
	}

	// Touching the same day again is a no-op.
	c.Today = 2
	c.Touch("2026-08-30")
	if c.Today != 2 {
		t.Errorf("second touch reset today's count: %+v", c)
	}
}

func TestActionUnmarshal(t *testing.T) {
	var a Action
	if err := json.Unmarshal([]byte(`"SMOKE"`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a != ActionSmoke {
		t.Errorf("action = %q", a)
	}

	if err := json.Unmarshal([]byte(`"nap"`), &a); err == nil {
		t.Fatal("unknown action must fail to unmarshal")
	}
}

func TestUserRecordClone(t *testing.T) {
	rec := &UserRecord{
		ID:          "1",
		DisplayName: "User A",
		Open: &OpenSession{
			Action:    ActionEat,
			StartedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		},
		Overtime: []OvertimeEntry{{Action: ActionEat, Minutes: 2, Day: "2026-08-29"}},
	}
	rec.Counter(ActionEat).Total = 3

	clone := rec.Clone()

	// Mutating the clone leaves the original untouched.
	clone.Open.Action = ActionSmoke
	clone.Counter(ActionEat).Total = 99
	clone.Overtime[0].Minutes = 50

	if rec.Open.Action != ActionEat {
		t.Error("clone shares the open session")
	}
	if rec.Counter(ActionEat).Total != 3 {
		t.Error("clone shares counters")
	}
	if rec.Overtime[0].Minutes != 2 {
		t.Error("clone shares the overtime log")
	}

	if (*UserRecord)(nil).Clone() != nil {
		t.Error("cloning a nil record must yield nil")
	}
}

func TestSnapshotEnsureAndRemove(t *testing.T) {
	snap := NewSnapshot()

	a := snap.Ensure("1")
	if a.ID != "1" {
		t.Errorf("record id = %q", a.ID)
	}
	snap.Ensure("2")
	if snap.Ensure("1") != a {
		t.Error("ensure must return the existing record")
	}
	if len(snap.Order) != 2 {
		t.Errorf("order = %v", snap.Order)
	}

	snap.Remove("1")
	if snap.User("1") != nil {
		t.Error("record survived removal")
	}
	if len(snap.Order) != 1 || snap.Order[0] != "2" {
		t.Errorf("order after removal = %v", snap.Order)
	}
}
