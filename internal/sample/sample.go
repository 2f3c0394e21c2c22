// Package sample generates the demonstration calendar shown on first run.
package sample

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

//go:embed sample.yaml
var document []byte

// Titles that only appear in the demonstration set.
var markerTitles = map[string]bool{
	"Team Standup Meeting": true,
	"Morning Workout":      true,
	"Meditation Session":   true,
}

type entry struct {
	Title          string           `yaml:"title"`
	Description    string           `yaml:"description"`
	From           string           `yaml:"from"`
	Offset         int              `yaml:"offset"`
	Time           string           `yaml:"time"`
	Duration       int              `yaml:"duration"`
	Category       model.Category   `yaml:"category"`
	Recurrence     model.Recurrence `yaml:"recurrence"`
	CustomInterval int              `yaml:"custom_interval"`
	CustomUnit     model.Unit       `yaml:"custom_unit"`
}

var entries []entry

func init() {
	var err error
	entries, err = parse(document)
	if err != nil {
		panic(fmt.Sprintf("sample: %v", err))
	}
}

func parse(doc []byte) ([]entry, error) {
	var out []entry
	if err := yaml.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("decode sample data: %w", err)
	}
	for i, e := range out {
		switch {
		case e.Title == "":
			return nil, fmt.Errorf("entry %d: title is required", i)
		case e.From != "today" && e.From != "week":
			return nil, fmt.Errorf("entry %d: from must be today or week, got %q", i, e.From)
		case !e.Category.Valid():
			return nil, fmt.Errorf("entry %d: invalid category %q", i, e.Category)
		case !e.Recurrence.Valid():
			return nil, fmt.Errorf("entry %d: invalid recurrence %q", i, e.Recurrence)
		}
		if _, err := dateutil.ParseClock(e.Time); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}

// Generator implements the schedule seeder over the embedded document.
type Generator struct {
	// NewID defaults to model.NewID.
	NewID func() string
}

// Generate returns the demonstration event definitions, dated relative to now.
// Each carries a fresh id and creation time but is not yet expanded.
func (g Generator) Generate(now time.Time) []model.Event {
	newID := g.NewID
	if newID == nil {
		newID = model.NewID
	}
	today := dateutil.Today(now)
	week := dateutil.StartOfWeek(today)
	created := now.UTC()

	events := make([]model.Event, 0, len(entries))
	for _, e := range entries {
		base := today
		if e.From == "week" {
			base = week
		}
		events = append(events, model.Event{
			ID:        newID(),
			CreatedAt: created,
			EventDefinition: model.EventDefinition{
				Title:          e.Title,
				Description:    e.Description,
				Date:           dateutil.FormatDate(dateutil.AddDays(base, e.Offset)),
				Time:           e.Time,
				Duration:       e.Duration,
				Category:       e.Category,
				Recurrence:     e.Recurrence,
				CustomInterval: e.CustomInterval,
				CustomUnit:     e.CustomUnit,
			},
		})
	}
	return events
}

// IsSampleData reports whether events look like the demonstration set. It is a
// title heuristic, not a robust marker.
func (Generator) IsSampleData(events []model.Event) bool {
	for _, e := range events {
		if markerTitles[e.Title] {
			return true
		}
	}
	return false
}
