// Package schedule holds the canonical collection of calendar event instances
// and the transitions that change it.
//
// A Store is created explicitly with New and initialized with Init, which
// either loads the persisted collection or seeds demonstration data. Every
// transition is atomic: readers observe the collection before or after it,
// never halfway. The persisted copy is written after each committed change,
// in commit order.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/Sahilgupta2175/event-calendar/internal/conflict"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/recurrence"
)

// ErrConflict is returned when a write would overlap an existing event and
// the caller did not ask to ignore conflicts. Resubmitting with
// IgnoreConflicts set, or with a different time, succeeds.
var ErrConflict = errors.New("event conflicts with existing event")

// ErrNotFound is returned when an operation names an event that is not stored.
var ErrNotFound = errors.New("event not found")

// ConflictError carries the stored event a rejected write collided with.
type ConflictError struct {
	With model.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %q on %s at %s", ErrConflict, e.With.Title, e.With.Date, e.With.Time)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Persister durably stores the full instance collection.
type Persister interface {
	Save(events []model.Event) error
	// Load returns the saved collection, or an empty one when nothing
	// readable is stored.
	Load() ([]model.Event, error)
	Clear() error
}

// Seeder supplies demonstration data.
type Seeder interface {
	Generate(now time.Time) []model.Event
	IsSampleData(events []model.Event) bool
}

// State is a point-in-time copy of the store.
type State struct {
	Instances  []model.Event             `json:"instances"`
	Filter     mo.Option[model.Category] `json:"filter"`
	SearchTerm string                    `json:"search_term"`
	LastError  mo.Option[string]         `json:"last_error"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionCleared = "cleared"
	ActionLoaded  = "loaded"
)

// Change describes a committed transition.
type Change struct {
	Action   string
	ID       string
	Count    int
	Category model.Category
}

// Listener is called after a transition has been committed and persisted.
type Listener func(Change)

type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
	seeder    Seeder
	listeners []Listener

	now           func() time.Time
	newID         func() string
	horizonMonths int
	logger        *slog.Logger
}

type Option func(*Store)

// WithSeeder enables seeding demonstration data during Init and ResetSample.
func WithSeeder(s Seeder) Option {
	return func(st *Store) { st.seeder = s }
}

func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(st *Store) { st.newID = newID }
}

// WithHorizonMonths sets how far ahead recurring events are materialized.
func WithHorizonMonths(months int) Option {
	return func(st *Store) {
		if months > 0 {
			st.horizonMonths = months
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(st *Store) { st.logger = logger }
}

// New creates an empty store. A nil persister keeps the collection in memory only.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persister:     p,
		now:           time.Now,
		newID:         model.NewID,
		horizonMonths: recurrence.HorizonMonths,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener for committed changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Init loads the persisted collection. When seeding is enabled and the saved
// data is empty or does not look like the demonstration set, the store is
// seeded from the sample generator instead.
func (s *Store) Init() {
	saved := s.loadSaved()
	if s.seeder != nil && (len(saved) == 0 || !s.seeder.IsSampleData(saved)) {
		s.ResetSample()
		return
	}
	s.install(saved)
}

// Load installs the persisted collection as saved, never seeding. It returns
// the number of loaded instances.
func (s *Store) Load() int {
	saved := s.loadSaved()
	s.install(saved)
	return len(saved)
}

func (s *Store) loadSaved() []model.Event {
	if s.persister == nil {
		return nil
	}
	saved, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("load saved events", "error", err)
		return nil
	}
	return saved
}

func (s *Store) install(saved []model.Event) {
	s.mu.Lock()
	s.state.Instances = slices.Clone(saved)
	s.mu.Unlock()
	s.logger.Info("loaded events", "count", len(saved))
}

// ResetSample replaces the whole collection with freshly generated
// demonstration data. It is a no-op when no seeder is configured.
func (s *Store) ResetSample() int {
	if s.seeder == nil {
		return 0
	}
	now := s.now()
	horizon := recurrence.Horizon(now, s.horizonMonths)

	var next []model.Event
	for _, def := range s.seeder.Generate(now) {
		next = append(next, recurrence.Expand(def, horizon)...)
	}

	s.mu.Lock()
	s.commit(next)
	s.state.LastError = mo.None[string]()
	s.mu.Unlock()

	s.logger.Info("seeded sample events", "count", len(next))
	s.notify(Change{Action: ActionLoaded, Count: len(next)})
	return len(next)
}

// Replace swaps in a complete collection, e.g. one restored from a backup.
func (s *Store) Replace(events []model.Event) {
	s.mu.Lock()
	s.commit(slices.Clone(events))
	s.mu.Unlock()
	s.notify(Change{Action: ActionLoaded, Count: len(events)})
}

// Create assigns def a new id, checks it against every stored instance and,
// unless it conflicts, appends its expansion. On conflict the collection is
// left untouched and LastError is set.
func (s *Store) Create(def model.EventDefinition) ([]model.Event, error) {
	s.mu.Lock()

	ev := model.Event{
		EventDefinition: def,
		ID:              s.newID(),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.checkConflict(ev, s.state.Instances); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ev.IgnoreConflicts = false

	added := recurrence.Expand(ev, s.horizon())
	next := append(slices.Clone(s.state.Instances), added...)
	s.commit(next)
	s.state.LastError = mo.None[string]()
	s.mu.Unlock()

	s.notify(Change{Action: ActionCreated, ID: ev.ID, Count: len(added), Category: ev.Category})
	return slices.Clone(added), nil
}

// Update replaces the whole family ev belongs to. ev.ID may name the family
// or any of its instances, and the family must still be stored: ErrNotFound
// is returned otherwise. The family is removed first, the edited event is
// checked against what remains, then re-expanded under the family id.
func (s *Store) Update(ev model.Event) ([]model.Event, error) {
	s.mu.Lock()

	family := s.familyOf(ev.ID)
	if !model.ValidBaseID(family) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is not a family id", ErrNotFound, family)
	}

	var remaining []model.Event
	members := 0
	createdAt := ev.CreatedAt
	for _, e := range s.state.Instances {
		if inFamily(e, family) {
			members++
			if createdAt.IsZero() {
				createdAt = e.CreatedAt
			}
			continue
		}
		remaining = append(remaining, e)
	}
	if members == 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	ev.ID = family
	ev.OriginalID = nil
	ev.IsRecurring = false
	ev.CreatedAt = createdAt

	if err := s.checkConflict(ev, remaining); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ev.IgnoreConflicts = false

	added := recurrence.Expand(ev, s.horizon())
	s.commit(append(remaining, added...))
	s.state.LastError = mo.None[string]()
	s.mu.Unlock()

	s.notify(Change{Action: ActionUpdated, ID: family, Count: len(added), Category: ev.Category})
	return slices.Clone(added), nil
}

// Move reschedules the family of the event id to a new anchor date, keeping
// every other field. It backs drag-and-drop between calendar days. A family
// deleted between the lookup and the write stays deleted.
func (s *Store) Move(id, date string, ignoreConflicts bool) ([]model.Event, error) {
	ev, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	ev.Date = date
	ev.IgnoreConflicts = ignoreConflicts
	return s.Update(ev)
}

// Delete removes every instance of the family id belongs to and returns how
// many records were removed.
func (s *Store) Delete(id string) int {
	s.mu.Lock()
	family := s.familyOf(id)
	var category model.Category
	next := slices.DeleteFunc(slices.Clone(s.state.Instances), func(e model.Event) bool {
		if inFamily(e, family) {
			category = e.Category
			return true
		}
		return false
	})
	removed := len(s.state.Instances) - len(next)
	if removed > 0 {
		s.commit(next)
	}
	s.mu.Unlock()

	if removed > 0 {
		s.notify(Change{Action: ActionDeleted, ID: family, Count: removed, Category: category})
	}
	return removed
}

// DeleteAll empties the collection and clears its persisted copy.
func (s *Store) DeleteAll() int {
	s.mu.Lock()
	removed := len(s.state.Instances)
	s.state.Instances = nil
	if s.persister != nil {
		if err := s.persister.Clear(); err != nil {
			s.logger.Error("clear saved events", "error", err)
		}
	}
	s.mu.Unlock()

	s.notify(Change{Action: ActionCleared, Count: removed})
	return removed
}

// Query returns the instances in category filter (when set) whose title or
// description contains term, case-insensitively (when non-empty).
func (s *Store) Query(filter mo.Option[model.Category], term string) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query(s.state.Instances, filter, term)
}

// Visible applies the store's current filter and search term.
func (s *Store) Visible() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query(s.state.Instances, s.state.Filter, s.state.SearchTerm)
}

func (s *Store) SetFilter(filter mo.Option[model.Category]) {
	s.mu.Lock()
	s.state.Filter = filter
	s.mu.Unlock()
}

func (s *Store) SetSearchTerm(term string) {
	s.mu.Lock()
	s.state.SearchTerm = term
	s.mu.Unlock()
}

// ClearError resets LastError without touching the collection.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.LastError = mo.None[string]()
	s.mu.Unlock()
}

// Get returns the stored instance with the given id.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.Instances {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Family returns every stored instance belonging to the family of id.
func (s *Store) Family(id string) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	family := s.familyOf(id)
	var out []model.Event
	for _, e := range s.state.Instances {
		if inFamily(e, family) {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Instances = slices.Clone(s.state.Instances)
	return st
}

// Len returns the number of stored instances.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Instances)
}

func (s *Store) horizon() time.Time {
	return recurrence.Horizon(s.now(), s.horizonMonths)
}

// checkConflict must be called with s.mu held.
func (s *Store) checkConflict(ev model.Event, against []model.Event) error {
	other, found := conflict.FindConflict(ev, against)
	if !found || ev.IgnoreConflicts {
		return nil
	}
	err := &ConflictError{With: other}
	s.state.LastError = mo.Some(err.Error())
	s.logger.Debug("rejected conflicting event", "title", ev.Title, "date", ev.Date, "time", ev.Time, "conflicts_with", other.ID)
	return err
}

// familyOf resolves id to the identity of its recurring family. A recurring
// instance maps to its parent; anything else is its own family. Must be
// called with s.mu held.
func (s *Store) familyOf(id string) string {
	for _, e := range s.state.Instances {
		if e.ID == id {
			return e.FamilyID()
		}
	}
	return id
}

func inFamily(e model.Event, family string) bool {
	return e.ID == family || (e.OriginalID != nil && *e.OriginalID == family)
}

// commit installs next as the collection and persists it. Must be called
// with s.mu held so saves happen in commit order.
func (s *Store) commit(next []model.Event) {
	s.state.Instances = next
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(next); err != nil {
		s.logger.Error("save events", "error", err, "count", len(next))
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, l := range listeners {
		l(c)
	}
}

func query(events []model.Event, filter mo.Option[model.Category], term string) []model.Event {
	term = strings.ToLower(term)
	out := []model.Event{}
	for _, e := range events {
		if c, ok := filter.Get(); ok && e.Category != c {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(e.Title), term) &&
			!strings.Contains(strings.ToLower(e.Description), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}
