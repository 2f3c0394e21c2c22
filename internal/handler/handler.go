// Package handler exposes the calendar over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sahilgupta2175/event-calendar/internal/form"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeWriteError maps the errors a create, update or move can return.
func writeWriteError(w http.ResponseWriter, err error) {
	if errs, ok := form.AsErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  errs.Error(),
			"fields": errs.Fields(),
		})
		return
	}

	var ce *schedule.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     ce.Error(),
			"retryable": true,
			"conflict":  ce.With,
		})
		return
	}

	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	writeError(w, http.StatusInternalServerError, "failed to save event")
}
