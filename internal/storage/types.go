package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayFormat is the date layout used for all per-day bookkeeping.
const DayFormat = "2006-01-02"

// Action identifies one of the fixed break kinds.
type Action string

const (
	ActionEat           Action = "eat"
	ActionSmoke         Action = "smoke"
	ActionRestroomLong  Action = "restroom_long"
	ActionRestroomShort Action = "restroom_short"
)

// Actions lists every break kind in report order.
var Actions = []Action{ActionEat, ActionSmoke, ActionRestroomLong, ActionRestroomShort}

// Valid reports whether a is a known break kind.
func (a Action) Valid() bool {
	switch a {
	case ActionEat, ActionSmoke, ActionRestroomLong, ActionRestroomShort:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler to normalize actions to lowercase.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	normalized := Action(strings.ToLower(s))
	if !normalized.Valid() {
		return fmt.Errorf("invalid action: %s", s)
	}
	*a = normalized
	return nil
}

// Counter tracks completed break cycles for one action. Day is the
// calendar date Today belongs to; a counter last touched on an earlier
// day reports zero for today.
type Counter struct {
	Today int    `json:"today"`
	Total int    `json:"total"`
	Day   string `json:"day,omitempty"`
}

// TodayOn returns the today count as seen on the given day.
func (c *Counter) TodayOn(day string) int {
	if c == nil || c.Day != day {
		return 0
	}
	return c.Today
}

// Touch rolls the counter over to the given day if it is stale.
func (c *Counter) Touch(day string) {
	if c.Day != day {
		c.Today = 0
		c.Day = day
	}
}

// OpenSession is a break in progress.
type OpenSession struct {
	Action    Action    `json:"action"`
	StartedAt time.Time `json:"started_at"`
}

// OvertimeEntry records a completed session that ran over its limit.
// Entries are append-only and never rewritten.
type OvertimeEntry struct {
	Action  Action `json:"action"`
	Minutes int64  `json:"minutes"`
	Day     string `json:"day"`
}

// UserRecord is the persistent state for one chat user.
type UserRecord struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"display_name"`
	Open        *OpenSession        `json:"open,omitempty"`
	Counters    map[Action]*Counter `json:"counters"`
	Overtime    []OvertimeEntry     `json:"overtime,omitempty"`
}

// Counter returns the counter for the given action, creating it if needed.
func (u *UserRecord) Counter(a Action) *Counter {
	if u.Counters == nil {
		u.Counters = make(map[Action]*Counter)
	}
	c, ok := u.Counters[a]
	if !ok {
		c = &Counter{}
		u.Counters[a] = c
	}
	return c
}

// Clone returns a deep copy of the record.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	clone := &UserRecord{
		ID:          u.ID,
		DisplayName: u.DisplayName,
	}
	if u.Open != nil {
		open := *u.Open
		clone.Open = &open
	}
	if u.Counters != nil {
		clone.Counters = make(map[Action]*Counter, len(u.Counters))
		for a, c := range u.Counters {
			copied := *c
			clone.Counters[a] = &copied
		}
	}
	if len(u.Overtime) > 0 {
		clone.Overtime = append([]OvertimeEntry(nil), u.Overtime...)
	}
	return clone
}

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = 1

// Snapshot is the full persisted mapping of users. Order preserves
// first-seen order so reports iterate deterministically.
type Snapshot struct {
	Version int                    `json:"version"`
	Order   []string               `json:"order"`
	Users   map[string]*UserRecord `json:"users"`
}

// NewSnapshot returns an empty snapshot at the current schema version.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		Users:   make(map[string]*UserRecord),
	}
}

// User returns the record for id, or nil if the user is unknown.
func (s *Snapshot) User(id string) *UserRecord {
	return s.Users[id]
}

// Ensure returns the record for id, creating and ordering it on first sight.
func (s *Snapshot) Ensure(id string) *UserRecord {
	if s.Users == nil {
		s.Users = make(map[string]*UserRecord)
	}
	rec, ok := s.Users[id]
	if !ok {
		rec = &UserRecord{ID: id}
		s.Users[id] = rec
		s.Order = append(s.Order, id)
	}
	return rec
}

// Remove deletes the record for id and drops it from the order.
func (s *Snapshot) Remove(id string) {
	delete(s.Users, id)
	for i, existing := range s.Order {
		if existing == id {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			return
		}
	}
}
