// Package conflict decides whether an event's time slot collides with another
// event booked on the same calendar day.
package conflict

import (
	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

// Interval is a half-open [Start, End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// IntervalOf returns the slot an event occupies on its date.
func IntervalOf(ev model.Event) (Interval, bool) {
	start, err := dateutil.MinutesOfDay(ev.Time)
	if err != nil {
		return Interval{}, false
	}
	return Interval{Start: start, End: start + ev.DurationOrDefault()}, true
}

// Overlaps reports whether two half-open intervals share any minute. It covers
// a starting inside b, a ending inside b, and a enveloping b; intervals that
// only touch (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Conflicts reports whether candidate overlaps any existing event on the same
// date. Events sharing the candidate's id are ignored.
func Conflicts(candidate model.Event, existing []model.Event) bool {
	_, found := FindConflict(candidate, existing)
	return found
}

// FindConflict returns the first existing event whose slot overlaps candidate.
func FindConflict(candidate model.Event, existing []model.Event) (model.Event, bool) {
	slot, ok := IntervalOf(candidate)
	if !ok {
		return model.Event{}, false
	}

	for _, ev := range existing {
		if ev.ID == candidate.ID || ev.Date != candidate.Date {
			continue
		}
		other, ok := IntervalOf(ev)
		if !ok {
			continue
		}
		if slot.Overlaps(other) {
			return ev, true
		}
	}
	return model.Event{}, false
}
