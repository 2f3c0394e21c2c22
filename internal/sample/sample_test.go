package sample

import (
	"testing"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

func TestGenerateCoversAllKinds(t *testing.T) {
	now := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC) // Wednesday
	events := Generator{}.Generate(now)

	if len(events) != len(entries) {
		t.Fatalf("got %d events, want %d", len(events), len(entries))
	}

	categories := map[model.Category]bool{}
	recurrences := map[model.Recurrence]bool{}
	ids := map[string]bool{}
	for _, e := range events {
		categories[e.Category] = true
		recurrences[e.Recurrence] = true
		if !model.ValidBaseID(e.ID) {
			t.Errorf("id %q is not a valid base id", e.ID)
		}
		if ids[e.ID] {
			t.Errorf("duplicate id %q", e.ID)
		}
		ids[e.ID] = true
		if e.OriginalID != nil {
			t.Errorf("%q: original id should be nil", e.Title)
		}
	}

	for _, c := range model.Categories {
		if !categories[c] {
			t.Errorf("category %q missing from sample data", c)
		}
	}
	for _, r := range []model.Recurrence{model.RecurrenceNone, model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly, model.RecurrenceCustom} {
		if !recurrences[r] {
			t.Errorf("recurrence %q missing from sample data", r)
		}
	}
}

func TestGenerateDatesRelativeToNow(t *testing.T) {
	now := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC) // Wednesday
	byTitle := map[string]model.Event{}
	for _, e := range (Generator{}).Generate(now) {
		byTitle[e.Title] = e
	}

	tests := []struct {
		title string
		date  string
	}{
		{"Team Standup Meeting", "2024-06-05"},
		{"Project Review", "2024-06-07"},
		{"Grocery Shopping", "2024-06-08"}, // Saturday of the current week
		{"Game Night", "2024-06-07"},
		{"Dentist Appointment", "2024-06-03"},
	}
	for _, tt := range tests {
		got, ok := byTitle[tt.title]
		if !ok {
			t.Errorf("%q missing", tt.title)
			continue
		}
		if got.Date != tt.date {
			t.Errorf("%q date = %s, want %s", tt.title, got.Date, tt.date)
		}
	}
}

func TestGenerateUsesIDGenerator(t *testing.T) {
	n := 0
	g := Generator{NewID: func() string {
		n++
		return "id" + string(rune('a'+n))
	}}
	events := g.Generate(time.Now())
	if events[0].ID != "idb" {
		t.Errorf("first id = %q, want idb", events[0].ID)
	}
}

func TestIsSampleData(t *testing.T) {
	g := Generator{}
	if !g.IsSampleData(g.Generate(time.Now())) {
		t.Error("generated data should be recognized")
	}
	if g.IsSampleData(nil) {
		t.Error("empty collection is not sample data")
	}
	user := []model.Event{{EventDefinition: model.EventDefinition{Title: "Dinner"}}}
	if g.IsSampleData(user) {
		t.Error("user data should not be recognized")
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	bad := []string{
		"- {title: X, from: today, time: '09:00', category: fun, recurrence: none}",
		"- {title: X, from: yesterday, time: '09:00', category: work, recurrence: none}",
		"- {title: '', from: today, time: '09:00', category: work, recurrence: none}",
		"- {title: X, from: today, time: '9am', category: work, recurrence: none}",
		"- {title: X, from: today, time: '09:00', category: work, recurrence: hourly}",
	}
	for _, doc := range bad {
		if _, err := parse([]byte(doc)); err == nil {
			t.Errorf("parse(%q) should error", doc)
		}
	}
}
