package recurrence

import (
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

// HorizonMonths is how far ahead a recurring event is materialized by default.
const HorizonMonths = 12

// Safety limit to prevent runaway expansion.
const maxIterations = 10000

// DefaultHorizon returns the last date included in an expansion started at now.
func DefaultHorizon(now time.Time) time.Time {
	return Horizon(now, HorizonMonths)
}

// Horizon returns the date months calendar months after now.
func Horizon(now time.Time, months int) time.Time {
	return dateutil.AddMonths(dateutil.Today(now), months)
}

// Expand materializes ev into concrete instances up to and including the
// horizon date. A non-recurring event comes back unchanged as the only
// instance. A recurring event yields one instance per step of its rule, each
// with a derived id and OriginalID pointing at ev.ID.
//
// An unknown recurrence or custom unit stops after the first instance.
func Expand(ev model.Event, horizon time.Time) []model.Event {
	if !ev.Recurrence.Repeats() {
		ev.IsRecurring = false
		ev.OriginalID = nil
		return []model.Event{ev}
	}

	anchor, err := dateutil.ParseDate(ev.Date)
	if err != nil {
		return nil
	}
	last := dateutil.Today(horizon)
	parentID := ev.ID

	var results []model.Event
	iter := newIterator(ev, anchor)
	for i := 0; i < maxIterations; i++ {
		cursor := iter.current
		if cursor.After(last) {
			break
		}

		date := dateutil.FormatDate(cursor)
		inst := ev
		inst.ID = model.InstanceID(parentID, date)
		inst.Date = date
		inst.OriginalID = &parentID
		inst.IsRecurring = true
		results = append(results, inst)

		if !iter.advance() {
			break
		}
	}

	return results
}

type iterator struct {
	unit     model.Unit
	interval int
	anchor   time.Time
	current  time.Time
	step     int
}

func newIterator(ev model.Event, anchor time.Time) *iterator {
	it := &iterator{anchor: anchor, current: anchor, interval: 1}

	switch ev.Recurrence {
	case model.RecurrenceDaily:
		it.unit = model.UnitDays
	case model.RecurrenceWeekly:
		it.unit = model.UnitWeeks
	case model.RecurrenceMonthly:
		it.unit = model.UnitMonths
	case model.RecurrenceCustom:
		it.unit = ev.CustomUnit
		if it.unit == "" {
			it.unit = model.UnitWeeks
		}
		if ev.CustomInterval > 0 {
			it.interval = ev.CustomInterval
		}
	}
	return it
}

// advance moves the cursor one step. It reports false when the rule is not
// recognized and expansion must stop.
func (it *iterator) advance() bool {
	it.step++
	n := it.step * it.interval

	switch it.unit {
	case model.UnitDays:
		it.current = dateutil.AddDays(it.anchor, n)
	case model.UnitWeeks:
		it.current = dateutil.AddWeeks(it.anchor, n)
	case model.UnitMonths:
		// Always measured from the anchor so a clamped month does not drag
		// later instances off the anchor's day.
		it.current = dateutil.AddMonths(it.anchor, n)
	default:
		return false
	}
	return true
}
