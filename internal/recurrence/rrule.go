package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
)

var freqNames = map[Freq]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
}

var rruleFreq = map[Freq]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
}

// Rule is the normalized cadence of a recurring event.
type Rule struct {
	Freq     Freq
	Interval int // default 1; 2 = every other period
}

func (r Rule) String() string {
	if r.Interval > 1 {
		return fmt.Sprintf("FREQ=%s;INTERVAL=%d", freqNames[r.Freq], r.Interval)
	}
	return "FREQ=" + freqNames[r.Freq]
}

// RuleFor normalizes the recurrence fields of ev. It returns false for
// non-recurring events and for rules the expander does not understand.
func RuleFor(ev model.EventDefinition) (Rule, bool) {
	switch ev.Recurrence {
	case model.RecurrenceDaily:
		return Rule{Freq: Daily, Interval: 1}, true
	case model.RecurrenceWeekly:
		return Rule{Freq: Weekly, Interval: 1}, true
	case model.RecurrenceMonthly:
		return Rule{Freq: Monthly, Interval: 1}, true
	case model.RecurrenceCustom:
		interval := ev.CustomInterval
		if interval < 1 {
			interval = 1
		}
		switch ev.CustomUnit {
		case model.UnitDays:
			return Rule{Freq: Daily, Interval: interval}, true
		case model.UnitWeeks, "":
			return Rule{Freq: Weekly, Interval: interval}, true
		case model.UnitMonths:
			return Rule{Freq: Monthly, Interval: interval}, true
		}
	}
	return Rule{}, false
}

// Describe returns a human-readable description of the event's recurrence.
func Describe(ev model.EventDefinition) string {
	r, ok := RuleFor(ev)
	if !ok {
		return ""
	}
	switch r.Freq {
	case Daily:
		if r.Interval > 1 {
			return fmt.Sprintf("Repeats every %d days", r.Interval)
		}
		return "Repeats daily"
	case Weekly:
		if r.Interval > 1 {
			return fmt.Sprintf("Repeats every %d weeks", r.Interval)
		}
		return "Repeats weekly"
	case Monthly:
		if r.Interval > 1 {
			return fmt.Sprintf("Repeats every %d months", r.Interval)
		}
		return "Repeats monthly"
	}
	return ""
}

// RuleOption converts a recurring event anchored at start into an RFC 5545
// rule that stops at until. It returns false when the cadence cannot be
// stated exactly: RFC 5545 skips months lacking the anchor day, while the
// expander clamps to the month's last day, so monthly rules anchored after
// the 28th are not exported as a rule.
func RuleOption(ev model.EventDefinition, start, until time.Time) (*rrule.ROption, bool) {
	r, ok := RuleFor(ev)
	if !ok {
		return nil, false
	}
	if r.Freq == Monthly && start.Day() > 28 {
		return nil, false
	}
	return &rrule.ROption{
		Freq:     rruleFreq[r.Freq],
		Interval: r.Interval,
		Dtstart:  start,
		Until:    time.Date(until.Year(), until.Month(), until.Day(), 23, 59, 59, 0, time.UTC),
	}, true
}

// Dates lists the instance dates of ev up to horizon using rrule-go. It is
// only defined for rules RuleOption accepts.
func Dates(ev model.EventDefinition, horizon time.Time) ([]string, error) {
	start, err := dateutil.ParseDate(ev.Date)
	if err != nil {
		return nil, err
	}
	opt, ok := RuleOption(ev, start, horizon)
	if !ok {
		return nil, fmt.Errorf("rule %q not expressible", ev.Recurrence)
	}
	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	var dates []string
	for _, t := range rr.All() {
		dates = append(dates, dateutil.FormatDate(t))
	}
	return dates, nil
}
