package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

// DefaultNamespace is the key the event collection is saved under.
const DefaultNamespace = "event-calendar-data"

// EventStore saves the whole event collection as one JSON document in the
// kv table.
type EventStore struct {
	db        *sql.DB
	namespace string
	logger    *slog.Logger
}

func NewEventStore(db *sql.DB, namespace string) *EventStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &EventStore{
		db:        db,
		namespace: namespace,
		logger:    slog.Default().With("component", "event_store"),
	}
}

func (s *EventStore) Save(events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO kv (namespace, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.namespace, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// Load returns the saved collection. A missing or unreadable document yields
// an empty collection; only database failures are returned as errors.
func (s *EventStore) Load() ([]model.Event, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE namespace = ?`, s.namespace).Scan(&value)
	if err == sql.ErrNoRows {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	var events []model.Event
	if err := json.Unmarshal([]byte(value), &events); err != nil {
		s.logger.Warn("discarding unreadable saved events", "namespace", s.namespace, "error", err)
		return []model.Event{}, nil
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func (s *EventStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// UpdatedAt returns when the collection was last saved, or nil if never.
func (s *EventStore) UpdatedAt() (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(`SELECT updated_at FROM kv WHERE namespace = ?`, s.namespace).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get updated_at: %w", err)
	}
	return &t, nil
}
