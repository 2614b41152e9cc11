package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harybot/breakroom/internal/storage"
	"github.com/harybot/breakroom/internal/tracking"
	"github.com/rs/zerolog"
)

type nopStore struct{}

func (nopStore) Load(ctx context.Context) (*storage.Snapshot, error) {
	return storage.NewSnapshot(), nil
}
func (nopStore) Save(ctx context.Context, snapshot *storage.Snapshot) error { return nil }
func (nopStore) Close() error                                               { return nil }

func newTestHandler(t *testing.T) (*Handler, *tracking.TestClock) {
	t.Helper()

	clock := &tracking.TestClock{
		CurrentTime: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	engine := tracking.NewEngine(nopStore{}, storage.NewSnapshot(), tracking.Config{
		Clock:    clock,
		Location: time.UTC,
	}, zerolog.Nop())
	return NewHandler(engine, zerolog.Nop()), clock
}

func press(h *Handler, userID, name, text string) string {
	return h.Handle(context.Background(), Incoming{
		UserID:      userID,
		DisplayName: name,
		FirstName:   name,
		Text:        text,
	})
}

func TestHandleDepartureButton(t *testing.T) {
	tests := []struct {
		button string
	}{
		{ButtonEat},
		{ButtonSmoke},
		{ButtonRestroomLong},
		{ButtonRestroomShort},
	}

	for _, tt := range tests {
		t.Run(tt.button, func(t *testing.T) {
			h, _ := newTestHandler(t)

			reply := press(h, "1", "Hary Tran", tt.button)

			if !strings.Contains(reply, "Đã ghi nhận thành công!") {
				t.Errorf("reply missing success marker: %q", reply)
			}
			if !strings.Contains(reply, "Hary Tran") {
				t.Errorf("reply missing user name: %q", reply)
			}
			if !strings.Contains(reply, tt.button) {
				t.Errorf("reply missing button label: %q", reply)
			}
			if !strings.Contains(reply, "10:00") {
				t.Errorf("reply missing time of day: %q", reply)
			}
		})
	}
}

func TestHandleReturnWithoutSession(t *testing.T) {
	h, _ := newTestHandler(t)

	reply := press(h, "2", "User B", ButtonReturn)

	if !strings.Contains(reply, "Đã ghi nhận thành công!") {
		t.Errorf("idle return must still acknowledge: %q", reply)
	}
	// No completed cycle: stats stay empty.
	stats := h.Handle(context.Background(), Incoming{UserID: "2", DisplayName: "User B", Command: "stats"})
	if stats != noDataToday {
		t.Errorf("stats = %q, want the no-data sentinel", stats)
	}
}

func TestHandleFreeText(t *testing.T) {
	h, _ := newTestHandler(t)

	reply := press(h, "1", "User A", "hello there")
	if reply != promptPickButton {
		t.Errorf("reply = %q, want the button re-prompt", reply)
	}

	// Free text never creates state visible in reports.
	stats := h.Handle(context.Background(), Incoming{UserID: "1", DisplayName: "User A", Command: "stats"})
	if stats != noDataToday {
		t.Errorf("stats = %q, want the no-data sentinel", stats)
	}
}

func TestHandleCommands(t *testing.T) {
	h, clock := newTestHandler(t)

	if got := h.Handle(context.Background(), Incoming{UserID: "1", FirstName: "Hary", Command: "start"}); !strings.Contains(got, "👋 Hary") {
		t.Errorf("start reply = %q", got)
	}
	if got := h.Handle(context.Background(), Incoming{UserID: "1", Command: "overtime"}); got != everyoneOnTime {
		t.Errorf("overtime reply = %q, want the on-time sentinel", got)
	}
	if got := h.Handle(context.Background(), Incoming{UserID: "1", Command: "weather"}); got != "" {
		t.Errorf("unknown command reply = %q, want ignored", got)
	}

	// One over-limit smoke break, then both reports carry it.
	press(h, "1", "Hary Tran", ButtonSmoke)
	clock.Advance(20 * time.Minute)
	press(h, "1", "Hary Tran", ButtonReturn)

	stats := h.Handle(context.Background(), Incoming{UserID: "9", Command: "stats"})
	if !strings.Contains(stats, "Hary Tran") || !strings.Contains(stats, "Hút thuốc 1/1") {
		t.Errorf("stats = %q", stats)
	}
	if !strings.Contains(stats, "Tổng cộng hôm nay: 1") {
		t.Errorf("stats missing grand total: %q", stats)
	}

	overtime := h.Handle(context.Background(), Incoming{UserID: "9", Command: "overtime"})
	if !strings.Contains(overtime, "Hút thuốc +5 phút") {
		t.Errorf("overtime = %q", overtime)
	}
}
