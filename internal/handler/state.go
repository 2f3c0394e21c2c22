package handler

import (
	"net/http"

	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
)

// StateHandler exposes the store's view state: the active filter, search
// term and last error.
type StateHandler struct {
	store *schedule.Store
}

func NewStateHandler(s *schedule.Store) *StateHandler {
	return &StateHandler{store: s}
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *StateHandler) Visible(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Visible())
}

func (h *StateHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	filter, ok := parseCategory(req.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	h.store.SetFilter(filter)
	writeJSON(w, http.StatusOK, h.store.Visible())
}

func (h *StateHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.store.SetSearchTerm(req.Term)
	writeJSON(w, http.StatusOK, h.store.Visible())
}

func (h *StateHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.store.ClearError()
	w.WriteHeader(http.StatusNoContent)
}
