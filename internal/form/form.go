// Package form validates and normalizes event input before it reaches the
// scheduling engine, applying the defaults the entry form starts with.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

const (
	DefaultTime     = "09:00"
	DefaultCategory = model.CategoryPersonal
	DefaultUnit     = model.UnitWeeks
)

// FieldError reports a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects every field that failed validation.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failures keyed by field name.
func (e Errors) Fields() map[string]string {
	m := make(map[string]string, len(e))
	for _, fe := range e {
		m[fe.Field] = fe.Message
	}
	return m
}

// AsErrors extracts validation failures from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	ok := errors.As(err, &errs)
	return errs, ok
}

// Normalize trims and defaults def and checks every field. The returned
// definition is safe to hand to the scheduling engine.
func Normalize(def model.EventDefinition) (model.EventDefinition, error) {
	var errs Errors

	def.Title = strings.TrimSpace(def.Title)
	if def.Title == "" {
		errs = append(errs, FieldError{"title", "Title is required"})
	}

	def.Date = strings.TrimSpace(def.Date)
	if def.Date == "" {
		errs = append(errs, FieldError{"date", "Date is required"})
	} else if _, err := dateutil.ParseDate(def.Date); err != nil {
		errs = append(errs, FieldError{"date", "Date must be YYYY-MM-DD"})
	}

	def.Time = strings.TrimSpace(def.Time)
	if def.Time == "" {
		errs = append(errs, FieldError{"time", "Time is required"})
	} else if _, err := dateutil.ParseClock(def.Time); err != nil {
		errs = append(errs, FieldError{"time", "Time must be HH:MM"})
	}

	switch {
	case def.Duration == 0:
		def.Duration = model.DefaultDuration
	case def.Duration < model.MinDuration:
		errs = append(errs, FieldError{"duration", fmt.Sprintf("Duration must be at least %d minutes", model.MinDuration)})
	case def.Duration%model.DurationStep != 0:
		errs = append(errs, FieldError{"duration", fmt.Sprintf("Duration must be a multiple of %d minutes", model.DurationStep)})
	}

	def.Description = strings.TrimSpace(def.Description)

	if def.Category == "" {
		def.Category = DefaultCategory
	} else if !def.Category.Valid() {
		errs = append(errs, FieldError{"category", fmt.Sprintf("Unknown category %q", def.Category)})
	}

	if def.Recurrence == "" {
		def.Recurrence = model.RecurrenceNone
	} else if !def.Recurrence.Valid() {
		errs = append(errs, FieldError{"recurrence", fmt.Sprintf("Unknown recurrence %q", def.Recurrence)})
	}

	if def.Recurrence == model.RecurrenceCustom {
		if def.CustomInterval < 1 {
			errs = append(errs, FieldError{"custom_interval", "Interval must be at least 1"})
		}
		if def.CustomUnit == "" {
			def.CustomUnit = DefaultUnit
		} else if !def.CustomUnit.Valid() {
			errs = append(errs, FieldError{"custom_unit", fmt.Sprintf("Unknown unit %q", def.CustomUnit)})
		}
	} else {
		def.CustomInterval = 0
		def.CustomUnit = ""
	}

	if len(errs) > 0 {
		return def, errs
	}
	return def, nil
}

// ValidDate checks a bare date such as the target of a move.
func ValidDate(date string) error {
	if _, err := dateutil.ParseDate(date); err != nil {
		return Errors{{"date", "Date must be YYYY-MM-DD"}}
	}
	return nil
}
