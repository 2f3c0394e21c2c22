// Package calendar lays events out on a month grid.
package calendar

import (
	"slices"
	"strings"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

// MaxVisible is how many events a day cell lists before summarizing the rest.
const MaxVisible = 3

type Day struct {
	Date    string        `json:"date"`
	Day     int           `json:"day"`
	InMonth bool          `json:"in_month"`
	Today   bool          `json:"today"`
	Weekend bool          `json:"weekend"`
	Events  []model.Event `json:"events"`
	// More counts events beyond MaxVisible.
	More int `json:"more"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Title string     `json:"title"`
	Days  []Day      `json:"days"`
}

// Weeks splits the grid into rows of seven days starting on Sunday.
func (m Month) Weeks() [][]Day {
	var weeks [][]Day
	for i := 0; i+7 <= len(m.Days); i += 7 {
		weeks = append(weeks, m.Days[i:i+7])
	}
	return weeks
}

// Build lays events onto the full Sunday-to-Saturday weeks covering the
// month. Each day lists its events ordered by start time, then title.
func Build(year int, month time.Month, events []model.Event, now time.Time) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	today := dateutil.Today(now)

	byDate := make(map[string][]model.Event)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}

	m := Month{
		Year:  year,
		Month: month,
		Title: first.Format("January 2006"),
	}
	for _, d := range dateutil.CalendarDays(first) {
		date := dateutil.FormatDate(d)
		dayEvents := byDate[date]
		SortByTime(dayEvents)
		if dayEvents == nil {
			dayEvents = []model.Event{}
		}
		day := Day{
			Date:    date,
			Day:     d.Day(),
			InMonth: dateutil.SameMonth(d, first),
			Today:   dateutil.SameDay(d, today),
			Weekend: dateutil.IsWeekend(d),
			Events:  dayEvents,
		}
		if len(dayEvents) > MaxVisible {
			day.More = len(dayEvents) - MaxVisible
		}
		m.Days = append(m.Days, day)
	}
	return m
}

// SortByTime orders events by date, start time, then title.
func SortByTime(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
}

// InRange keeps events dated from..to inclusive. Empty bounds are open.
func InRange(events []model.Event, from, to string) []model.Event {
	out := []model.Event{}
	for _, e := range events {
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	return out
}
