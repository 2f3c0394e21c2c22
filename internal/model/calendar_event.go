package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryHealth   Category = "health"
	CategorySocial   Category = "social"
	CategoryOther    Category = "other"
)

var Categories = []Category{CategoryPersonal, CategoryWork, CategoryHealth, CategorySocial, CategoryOther}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceCustom  Recurrence = "custom"
)

func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	}
	return false
}

// Repeats reports whether the rule produces more than a single standalone event.
func (r Recurrence) Repeats() bool {
	return r != "" && r != RecurrenceNone
}

type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

func (u Unit) Valid() bool {
	return u == UnitDays || u == UnitWeeks || u == UnitMonths
}

const (
	DefaultDuration = 60
	MinDuration     = 15
	DurationStep    = 15
)

// EventDefinition is what a user submits before expansion.
type EventDefinition struct {
	Title          string     `json:"title"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Duration       int        `json:"duration"`
	Description    string     `json:"description"`
	Category       Category   `json:"category"`
	Recurrence     Recurrence `json:"recurrence"`
	CustomInterval int        `json:"custom_interval,omitempty"`
	CustomUnit     Unit       `json:"custom_unit,omitempty"`

	// IgnoreConflicts is honoured for a single write and never persisted.
	IgnoreConflicts bool `json:"-"`
}

// DurationOrDefault returns the duration in minutes, falling back to 60 when unset.
func (d EventDefinition) DurationOrDefault() int {
	if d.Duration <= 0 {
		return DefaultDuration
	}
	return d.Duration
}

// Event is a stored, materialized event instance.
type Event struct {
	EventDefinition
	ID          string    `json:"id"`
	OriginalID  *string   `json:"original_id"`
	IsRecurring bool      `json:"is_recurring"`
	CreatedAt   time.Time `json:"created_at"`
}

// FamilyID returns the identity shared by every instance of the same logical event.
func (e Event) FamilyID() string {
	if e.OriginalID != nil {
		return *e.OriginalID
	}
	return e.ID
}

// IDDelimiter joins a parent id and an instance date in derived instance ids.
const IDDelimiter = "-"

// NewID returns a fresh base identifier. Base ids never contain IDDelimiter,
// so a derived "{parent}-{date}" id cannot collide with any base id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidBaseID reports whether id can be used as a parent identifier.
func ValidBaseID(id string) bool {
	return id != "" && !strings.Contains(id, IDDelimiter)
}

// InstanceID derives the id of the instance of parentID dated on date.
func InstanceID(parentID, date string) string {
	return parentID + IDDelimiter + date
}
