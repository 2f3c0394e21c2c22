// Package ical exports the event collection as an RFC 5545 calendar.
package ical

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/recurrence"
)

const (
	ProductID = "-//eventcal//Event Calendar//EN"
	uidDomain = "@eventcal"

	floatingLayout = "20060102T150405"
)

// Build converts events into a calendar. Standalone events become one VEVENT
// each. A recurring family becomes a single VEVENT with an RRULE when the
// rule reproduces its stored dates exactly, otherwise one VEVENT per
// instance. Times are floating: they carry no zone.
func Build(events []model.Event, now time.Time) (*goical.Calendar, error) {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropProductID, ProductID)
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropCalendarScale, "GREGORIAN")

	stamp := now.UTC()
	for _, family := range families(events) {
		vevents, err := familyEvents(family, stamp)
		if err != nil {
			return nil, err
		}
		for _, ve := range vevents {
			cal.Children = append(cal.Children, ve.Component)
		}
	}
	return cal, nil
}

// Encode writes events to w as an iCalendar stream.
func Encode(w io.Writer, events []model.Event, now time.Time) error {
	cal, err := Build(events, now)
	if err != nil {
		return err
	}
	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// families groups instances by family in order of first appearance, each
// family sorted by date.
func families(events []model.Event) [][]model.Event {
	index := map[string]int{}
	var out [][]model.Event
	for _, e := range events {
		id := e.FamilyID()
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], e)
	}
	for _, f := range out {
		slices.SortStableFunc(f, func(a, b model.Event) int { return strings.Compare(a.Date, b.Date) })
	}
	return out
}

func familyEvents(family []model.Event, stamp time.Time) ([]*goical.Event, error) {
	first := family[0]
	if first.OriginalID != nil {
		if rule, ok := exactRule(family); ok {
			ve, err := newEvent(first, first.FamilyID(), stamp)
			if err != nil {
				return nil, err
			}
			prop := goical.NewProp(goical.PropRecurrenceRule)
			prop.SetValueType(goical.ValueRecurrence)
			prop.Value = rule
			ve.Props.Set(prop)
			return []*goical.Event{ve}, nil
		}
	}

	out := make([]*goical.Event, 0, len(family))
	for _, inst := range family {
		ve, err := newEvent(inst, inst.ID, stamp)
		if err != nil {
			return nil, err
		}
		out = append(out, ve)
	}
	return out, nil
}

// exactRule returns an RRULE value for family if expanding it yields exactly
// the family's dates.
func exactRule(family []model.Event) (string, bool) {
	first, last := family[0], family[len(family)-1]
	start, err := dateutil.Combine(first.Date, first.Time)
	if err != nil {
		return "", false
	}
	until, err := dateutil.ParseDate(last.Date)
	if err != nil {
		return "", false
	}

	opt, ok := recurrence.RuleOption(first.EventDefinition, start, until)
	if !ok {
		return "", false
	}
	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return "", false
	}
	got := rr.All()
	if len(got) != len(family) {
		return "", false
	}
	for i, t := range got {
		if dateutil.FormatDate(t) != family[i].Date {
			return "", false
		}
	}

	rule, _ := recurrence.RuleFor(first.EventDefinition)
	return fmt.Sprintf("%s;COUNT=%d", rule, len(family)), true
}

func newEvent(e model.Event, uid string, stamp time.Time) (*goical.Event, error) {
	start, err := dateutil.Combine(e.Date, e.Time)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	end := start.Add(time.Duration(e.DurationOrDefault()) * time.Minute)

	ve := goical.NewEvent()
	ve.Props.SetText(goical.PropUID, uid+uidDomain)
	ve.Props.SetDateTime(goical.PropDateTimeStamp, stamp)
	ve.Props.Set(floating(goical.PropDateTimeStart, start))
	ve.Props.Set(floating(goical.PropDateTimeEnd, end))
	ve.Props.SetText(goical.PropSummary, e.Title)
	if e.Description != "" {
		ve.Props.SetText(goical.PropDescription, e.Description)
	}
	if e.Category != "" {
		ve.Props.SetText(goical.PropCategories, strings.ToUpper(string(e.Category)))
	}
	if !e.CreatedAt.IsZero() {
		ve.Props.SetDateTime(goical.PropCreated, e.CreatedAt.UTC())
	}
	return ve, nil
}

func floating(name string, t time.Time) *goical.Prop {
	p := goical.NewProp(name)
	p.Value = t.Format(floatingLayout)
	return p
}
