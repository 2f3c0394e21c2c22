package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/backup"
	"github.com/Sahilgupta2175/event-calendar/internal/handler"
	"github.com/Sahilgupta2175/event-calendar/internal/middleware"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
	ws "github.com/Sahilgupta2175/event-calendar/internal/websocket"
)

type Options struct {
	// AllowedOrigins limits websocket origins; empty accepts any.
	AllowedOrigins []string
	// WriteLimit caps mutating requests per client per minute; 0 disables it.
	WriteLimit int
	Now        func() time.Time
	// SavedAt reports when the collection was last persisted, for /health.
	SavedAt func() (*time.Time, error)
}

type Server struct {
	hub           *ws.Hub
	events        *schedule.Store
	eventH        *handler.EventHandler
	stateH        *handler.StateHandler
	calendarH     *handler.CalendarHandler
	backupH       *handler.BackupHandler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	opts          Options
	logger        *slog.Logger
}

func New(db *sql.DB, events *schedule.Store, backupCfg backup.Config, opts Options, logger *slog.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hub := ws.NewHub(logger.With("component", "websocket"))

	events.Subscribe(func(c schedule.Change) {
		msg := ws.NewMessage("event", c.Action, c.ID, map[string]any{
			"count": c.Count,
		})
		msg.Category = string(c.Category)
		hub.Broadcast(msg)
	})

	backupMgr := backup.NewManager(backupCfg, store.NewBackupStore(db), events, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		hub:           hub,
		events:        events,
		eventH:        handler.NewEventHandler(events, logger.With("component", "events")),
		stateH:        handler.NewStateHandler(events),
		calendarH:     handler.NewCalendarHandler(events, opts.Now, logger.With("component", "calendar")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(),
		opts:          opts,
		logger:        logger,
	}
}

// Hub returns the change feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Event API routes
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("DELETE /api/events", s.eventH.DeleteAll)
	mux.HandleFunc("POST /api/events/sample", s.eventH.ResetSample)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("GET /api/events/{id}/family", s.eventH.Family)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("POST /api/events/{id}/move", s.eventH.Move)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// View state
	mux.HandleFunc("GET /api/state", s.stateH.Get)
	mux.HandleFunc("GET /api/state/visible", s.stateH.Visible)
	mux.HandleFunc("PUT /api/state/filter", s.stateH.SetFilter)
	mux.HandleFunc("PUT /api/state/search", s.stateH.SetSearch)
	mux.HandleFunc("DELETE /api/state/error", s.stateH.ClearError)

	// Calendar views
	mux.HandleFunc("GET /api/calendar/{year}/{month}", s.calendarH.Month)
	mux.HandleFunc("GET /api/export.ics", s.calendarH.Export)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.opts.AllowedOrigins, s.logger.With("component", "websocket")))

	limited := middleware.LimitWrites(s.rateLimiter, s.opts.WriteLimit, time.Minute)(mux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(limited)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"events":  s.events.Len(),
		"clients": s.hub.ClientCount(),
		"dropped": s.hub.Dropped(),
	}
	if s.opts.SavedAt != nil {
		at, err := s.opts.SavedAt()
		if err != nil {
			s.logger.Warn("read last save time", "error", err)
		} else if at != nil {
			body["saved_at"] = at.UTC()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
