package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/calendar"
	"github.com/Sahilgupta2175/event-calendar/internal/ical"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
)

type CalendarHandler struct {
	store  *schedule.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewCalendarHandler(s *schedule.Store, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{store: s, now: now, logger: logger}
}

// Month returns the grid for /api/calendar/{year}/{month}, showing only the
// events that pass the current filter and search.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	writeJSON(w, http.StatusOK, calendar.Build(year, time.Month(month), h.store.Visible(), h.now()))
}

// Export streams the whole collection as an iCalendar file.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := ical.Encode(&buf, h.store.Snapshot().Instances, h.now()); err != nil {
		h.logger.Error("export calendar", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
