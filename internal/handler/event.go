package handler

import (
	"log/slog"
	"net/http"

	"github.com/samber/mo"

	"github.com/Sahilgupta2175/event-calendar/internal/calendar"
	"github.com/Sahilgupta2175/event-calendar/internal/form"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
)

type EventHandler struct {
	store  *schedule.Store
	logger *slog.Logger
}

func NewEventHandler(s *schedule.Store, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: s, logger: logger}
}

type eventRequest struct {
	model.EventDefinition
	IgnoreConflicts bool `json:"ignore_conflicts"`
}

func (req eventRequest) definition() (model.EventDefinition, error) {
	def, err := form.Normalize(req.EventDefinition)
	if err != nil {
		return def, err
	}
	def.IgnoreConflicts = req.IgnoreConflicts
	return def, nil
}

type moveRequest struct {
	Date            string `json:"date"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

// parseCategory reads an optional category filter. An empty value means all.
func parseCategory(raw string) (mo.Option[model.Category], bool) {
	if raw == "" || raw == "all" {
		return mo.None[model.Category](), true
	}
	c := model.Category(raw)
	if !c.Valid() {
		return mo.None[model.Category](), false
	}
	return mo.Some(c), true
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, ok := parseCategory(q.Get("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d != "" && form.ValidDate(d) != nil {
			writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
			return
		}
	}

	events := calendar.InRange(h.store.Query(filter, q.Get("search")), from, to)
	calendar.SortByTime(events)
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Family lists every instance sharing the event's recurring family.
func (h *EventHandler) Family(w http.ResponseWriter, r *http.Request) {
	events := h.store.Family(r.PathValue("id"))
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	def, err := req.definition()
	if err != nil {
		writeWriteError(w, err)
		return
	}

	added, err := h.store.Create(def)
	if err != nil {
		h.logger.Info("create rejected", "title", def.Title, "date", def.Date, "error", err)
		writeWriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, added)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	def, err := req.definition()
	if err != nil {
		writeWriteError(w, err)
		return
	}

	updated, err := h.store.Update(model.Event{
		EventDefinition: def,
		ID:              id,
		CreatedAt:       existing.CreatedAt,
	})
	if err != nil {
		h.logger.Info("update rejected", "id", id, "error", err)
		writeWriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := form.ValidDate(req.Date); err != nil {
		writeWriteError(w, err)
		return
	}

	moved, err := h.store.Move(r.PathValue("id"), req.Date, req.IgnoreConflicts)
	if err != nil {
		writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.store.Delete(r.PathValue("id")) == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n := h.store.DeleteAll()
	h.logger.Info("deleted all events", "count", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// ResetSample replaces the collection with the demonstration set.
func (h *EventHandler) ResetSample(w http.ResponseWriter, r *http.Request) {
	n := h.store.ResetSample()
	if n == 0 {
		writeError(w, http.StatusConflict, "sample data is disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
