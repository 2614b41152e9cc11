package tracking

import (
	"time"

	"github.com/harybot/breakroom/internal/storage"
)

// DoubleDeparturePolicy decides what a departure does while a session
// is already open.
type DoubleDeparturePolicy string

const (
	// DepartureReplace discards the open session and starts a new one
	// (last write wins, the original bot's behavior).
	DepartureReplace DoubleDeparturePolicy = "replace"
	// DepartureReject keeps the open session and ignores the new departure.
	DepartureReject DoubleDeparturePolicy = "reject"
)

// SaveErrorPolicy decides what happens to the in-memory state when the
// snapshot write fails after an event was applied.
type SaveErrorPolicy string

const (
	// SaveKeep keeps the in-memory effect and degrades to memory-only.
	SaveKeep SaveErrorPolicy = "keep"
	// SaveRollback restores the user record to its pre-event state.
	SaveRollback SaveErrorPolicy = "rollback"
)

// Event distinguishes the two kinds of button presses.
type Event string

const (
	EventDeparture Event = "departure"
	EventReturn    Event = "return"
)

// DefaultLimits are the break limits in minutes.
var DefaultLimits = map[storage.Action]int{
	storage.ActionEat:           30,
	storage.ActionSmoke:         15,
	storage.ActionRestroomLong:  15,
	storage.ActionRestroomShort: 5,
}

// ClosedSession describes the session a return event closed.
type ClosedSession struct {
	Action   storage.Action
	Minutes  int64 // whole elapsed minutes, floored
	Overtime int64 // minutes over the limit, 0 when on time
}

// Ack is the structured result of one recorded event, rendered to chat
// text by the adapter.
type Ack struct {
	UserID      string
	DisplayName string
	At          time.Time // event time in the tracking timezone
	Event       Event
	Action      storage.Action // requested action; empty for returns
	Replaced    storage.Action // set when this departure discarded an open session
	Rejected    storage.Action // set when this departure was ignored (reject policy)
	Closed      *ClosedSession // set when this return closed a session
}

// ActionCount is one action's counters within a daily report line.
type ActionCount struct {
	Action storage.Action
	Today  int
	Total  int
}

// UserDaily is one user's line in the daily report.
type UserDaily struct {
	DisplayName string
	Actions     []ActionCount
	Today       int // subtotal across actions
	Total       int
}

// DailyReport aggregates today's completed breaks. Users holds only
// users with at least one completed break today, in first-seen order.
type DailyReport struct {
	Day        string
	Users      []UserDaily
	GrandToday int
	GrandTotal int
}

// OvertimeItem is one overtime occurrence, either logged at session
// close or computed live from a still-open session.
type OvertimeItem struct {
	Action  storage.Action
	Minutes int64
	Live    bool
}

// UserOvertime is one user's overtime line.
type UserOvertime struct {
	DisplayName string
	Items       []OvertimeItem
}

// OvertimeReport lists today's overtime per user, in first-seen order.
type OvertimeReport struct {
	Day   string
	Users []UserOvertime
}
