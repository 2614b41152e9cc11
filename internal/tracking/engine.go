package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harybot/breakroom/internal/metrics"
	"github.com/harybot/breakroom/internal/storage"
	"github.com/rs/zerolog"
)

// Config holds engine configuration.
type Config struct {
	Limits          map[storage.Action]int // minutes per action
	Location        *time.Location
	DoubleDeparture DoubleDeparturePolicy
	OnSaveError     SaveErrorPolicy
	Clock           Clock
}

// Engine applies button-press events to the in-memory snapshot,
// persists after every mutation and answers reporting queries. All
// state access is serialized behind one mutex: counter increments and
// the double-departure policy are not commutative under interleaving.
type Engine struct {
	store       storage.Store
	snap        *storage.Snapshot
	limits      map[storage.Action]int
	loc         *time.Location
	double      DoubleDeparturePolicy
	onSaveError SaveErrorPolicy
	clock       Clock
	logger      zerolog.Logger
	mu          sync.Mutex
}

// NewEngine creates a session engine over a loaded snapshot. The
// snapshot is owned by the engine from here on.
func NewEngine(store storage.Store, snap *storage.Snapshot, config Config, logger zerolog.Logger) *Engine {
	if snap == nil {
		snap = storage.NewSnapshot()
	}
	if config.Limits == nil {
		config.Limits = DefaultLimits
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.DoubleDeparture == "" {
		config.DoubleDeparture = DepartureReplace
	}
	if config.OnSaveError == "" {
		config.OnSaveError = SaveKeep
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	e := &Engine{
		store:       store,
		snap:        snap,
		limits:      config.Limits,
		loc:         config.Location,
		double:      config.DoubleDeparture,
		onSaveError: config.OnSaveError,
		clock:       config.Clock,
		logger:      logger.With().Str("component", "engine").Logger(),
	}
	e.syncOpenGauge()
	return e
}

// Limit returns the configured limit in minutes for an action.
func (e *Engine) Limit(action storage.Action) int {
	return e.limits[action]
}

// RecordDeparture logs that a user left for a break. An open session
// is handled per the double-departure policy. The returned error only
// reports a rolled-back persistence failure; the ack is always valid.
func (e *Engine) RecordDeparture(ctx context.Context, userID, displayName string, action storage.Action) (*Ack, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().In(e.loc)
	before := e.snap.User(userID).Clone()
	rec := e.snap.Ensure(userID)
	rec.DisplayName = displayName

	ack := &Ack{
		UserID:      userID,
		DisplayName: displayName,
		At:          now,
		Event:       EventDeparture,
		Action:      action,
	}

	if rec.Open != nil && e.double == DepartureReject {
		ack.Rejected = rec.Open.Action
		e.logger.Debug().
			Str("user_id", userID).
			Str("action", string(action)).
			Str("open_action", string(rec.Open.Action)).
			Msg("Departure rejected, session already open")
	} else {
		if rec.Open != nil {
			ack.Replaced = rec.Open.Action
			e.logger.Debug().
				Str("user_id", userID).
				Str("discarded", string(rec.Open.Action)).
				Msg("Open session replaced by new departure")
		}
		rec.Open = &storage.OpenSession{Action: action, StartedAt: now}
	}

	metrics.EventsTotal.WithLabelValues(string(EventDeparture), string(action)).Inc()
	e.syncOpenGauge()

	if err := e.persist(ctx, userID, before); err != nil {
		return ack, err
	}

	e.logger.Info().
		Str("user_id", userID).
		Str("name", displayName).
		Str("action", string(action)).
		Msg("Departure recorded")
	return ack, nil
}

// RecordReturn logs that a user came back. Without an open session
// this is a no-op acknowledgement; otherwise the session is closed,
// counters are incremented and overtime is logged when the elapsed
// minutes exceed the action's limit.
func (e *Engine) RecordReturn(ctx context.Context, userID, displayName string) (*Ack, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().In(e.loc)
	day := now.Format(storage.DayFormat)
	before := e.snap.User(userID).Clone()
	rec := e.snap.Ensure(userID)
	rec.DisplayName = displayName

	ack := &Ack{
		UserID:      userID,
		DisplayName: displayName,
		At:          now,
		Event:       EventReturn,
	}

	actionLabel := "none"
	if rec.Open != nil {
		action := rec.Open.Action
		actionLabel = string(action)

		elapsed := int64(now.Sub(rec.Open.StartedAt) / time.Minute)
		if elapsed < 0 {
			elapsed = 0
		}

		counter := rec.Counter(action)
		counter.Touch(day)
		counter.Today++
		counter.Total++

		closed := &ClosedSession{Action: action, Minutes: elapsed}
		if limit := int64(e.limits[action]); elapsed > limit {
			closed.Overtime = elapsed - limit
			rec.Overtime = append(rec.Overtime, storage.OvertimeEntry{
				Action:  action,
				Minutes: closed.Overtime,
				Day:     day,
			})
			metrics.OvertimeMinutes.WithLabelValues(actionLabel).Add(float64(closed.Overtime))
		}

		rec.Open = nil
		ack.Closed = closed
	}

	metrics.EventsTotal.WithLabelValues(string(EventReturn), actionLabel).Inc()
	e.syncOpenGauge()

	if err := e.persist(ctx, userID, before); err != nil {
		return ack, err
	}

	evt := e.logger.Info().
		Str("user_id", userID).
		Str("name", displayName)
	if ack.Closed != nil {
		evt = evt.
			Str("action", string(ack.Closed.Action)).
			Int64("minutes", ack.Closed.Minutes).
			Int64("overtime", ack.Closed.Overtime)
	}
	evt.Msg("Return recorded")
	return ack, nil
}

// DailyReport aggregates today's completed breaks across all users.
func (e *Engine) DailyReport() *DailyReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := e.clock.Now().In(e.loc).Format(storage.DayFormat)
	report := &DailyReport{Day: day}

	for _, id := range e.snap.Order {
		rec := e.snap.User(id)
		if rec == nil {
			continue
		}

		line := UserDaily{DisplayName: rec.DisplayName}
		for _, action := range storage.Actions {
			counter := rec.Counters[action]
			if counter == nil || counter.Total == 0 {
				continue
			}
			today := counter.TodayOn(day)
			line.Actions = append(line.Actions, ActionCount{
				Action: action,
				Today:  today,
				Total:  counter.Total,
			})
			line.Today += today
			line.Total += counter.Total
		}

		if line.Today == 0 {
			continue
		}
		report.Users = append(report.Users, line)
		report.GrandToday += line.Today
		report.GrandTotal += line.Total
	}

	return report
}

// OvertimeReport lists users over their limit today, merging overtime
// logged at session close with live overtime of still-open sessions.
func (e *Engine) OvertimeReport() *OvertimeReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().In(e.loc)
	day := now.Format(storage.DayFormat)
	report := &OvertimeReport{Day: day}

	for _, id := range e.snap.Order {
		rec := e.snap.User(id)
		if rec == nil {
			continue
		}

		line := UserOvertime{DisplayName: rec.DisplayName}

		if rec.Open != nil {
			elapsed := int64(now.Sub(rec.Open.StartedAt) / time.Minute)
			if limit := int64(e.limits[rec.Open.Action]); elapsed > limit {
				line.Items = append(line.Items, OvertimeItem{
					Action:  rec.Open.Action,
					Minutes: elapsed - limit,
					Live:    true,
				})
			}
		}

		for _, entry := range rec.Overtime {
			if entry.Day != day {
				continue
			}
			line.Items = append(line.Items, OvertimeItem{
				Action:  entry.Action,
				Minutes: entry.Minutes,
			})
		}

		if len(line.Items) == 0 {
			continue
		}
		report.Users = append(report.Users, line)
	}

	return report
}

// persist writes the snapshot after an applied event. Failures never
// reach chat: under SaveKeep the in-memory effect stands and the error
// is only logged; under SaveRollback the user record reverts to its
// pre-event copy and the error is returned so the adapter can answer
// with a retry prompt instead of a false success.
func (e *Engine) persist(ctx context.Context, userID string, before *storage.UserRecord) error {
	err := e.store.Save(ctx, e.snap)
	if err == nil {
		return nil
	}

	metrics.SnapshotSaveFailures.Inc()

	if e.onSaveError == SaveRollback {
		if before == nil {
			e.snap.Remove(userID)
		} else {
			e.snap.Users[userID] = before
		}
		e.syncOpenGauge()
		e.logger.Error().Err(err).Str("user_id", userID).Msg("Snapshot save failed, event rolled back")
		return fmt.Errorf("save snapshot: %w", err)
	}

	e.logger.Error().Err(err).Str("user_id", userID).Msg("Snapshot save failed, keeping in-memory state")
	return nil
}

func (e *Engine) syncOpenGauge() {
	open := 0
	for _, rec := range e.snap.Users {
		if rec.Open != nil {
			open++
		}
	}
	metrics.OpenSessions.Set(float64(open))
}
