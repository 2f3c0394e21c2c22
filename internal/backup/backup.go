// Package backup writes encrypted snapshots of the event collection to disk,
// optionally mirrors them to S3-compatible storage, and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

const snapshotVersion = 1

// DefaultRetentionDays applies when Config.RetentionDays is not positive.
const DefaultRetentionDays = 30

// Collection is the part of the event store a backup reads from and restores into.
type Collection interface {
	Snapshot() schedule.State
	Replace(events []model.Event)
}

// Config holds backup manager configuration.
type Config struct {
	Dir string
	// Schedule is a standard five-field cron expression. Empty disables
	// scheduled backups; RunNow still works.
	Schedule      string
	Passphrase    string
	RetentionDays int
	S3            S3Config
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

type snapshot struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Events    []model.Event `json:"events"`
}

// Manager writes encrypted snapshots to a local directory.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	records *store.BackupStore
	events  Collection
	remote  s3Client
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewManager creates a backup manager. It starts disabled when no directory
// or passphrase is configured.
func NewManager(cfg Config, records *store.BackupStore, events Collection, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	m := &Manager{
		cfg:      cfg,
		records:  records,
		events:   events,
		callback: callback,
		status:   Status{State: StateDisabled},
		logger:   logger,
	}
	if cfg.Dir != "" && cfg.Passphrase != "" {
		m.status.State = StateIdle
	}
	if cfg.S3.Enabled() {
		m.remote = newS3Client(cfg.S3)
	}
	return m
}

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parse backup schedule %q: %w", spec, err)
	}
	return nil
}

// Start registers the scheduled backup job. It is a no-op when the manager
// is disabled or no schedule is configured.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State == StateDisabled || m.cfg.Schedule == "" || m.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.cfg.Schedule, m.scheduled); err != nil {
		return fmt.Errorf("schedule backups: %w", err)
	}
	c.Start()
	m.cron = c
	m.logger.Info("scheduled backups", "schedule", m.cfg.Schedule, "dir", m.cfg.Dir)
	return nil
}

// Stop waits for a running scheduled backup to finish and stops the scheduler.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) scheduled() {
	if _, err := m.RunNow(context.Background()); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
		return
	}
	m.mu.RLock()
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()
	if err := m.Cleanup(retention); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow writes a snapshot with the configured passphrase.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.RLock()
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()
	return m.Run(ctx, passphrase)
}

// Run writes an encrypted snapshot of the current collection and returns its record.
func (m *Manager) Run(ctx context.Context, passphrase string) (*model.Backup, error) {
	m.mu.RLock()
	dir := m.cfg.Dir
	m.mu.RUnlock()

	if dir == "" {
		return nil, fmt.Errorf("backup not configured: directory missing")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("backup passphrase not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	if err := os.MkdirAll(dir, 0700); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("eventcal-%s.enc", now.Format("20060102T150405.000000000Z"))
	path := filepath.Join(dir, filename)

	record, err := m.records.Create(filename, path)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(err error) (*model.Backup, error) {
		if uerr := m.records.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Warn("update backup status", "id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	if err := m.records.UpdateStatus(record.ID, model.BackupStatusWriting, ""); err != nil {
		return fail(err)
	}

	events := m.events.Snapshot().Instances
	payload, err := json.Marshal(snapshot{Version: snapshotVersion, CreatedAt: now, Events: events})
	if err != nil {
		return fail(fmt.Errorf("encode snapshot: %w", err))
	}

	size, err := EncryptFile(payload, path, passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	if err := m.upload(ctx, path); err != nil {
		return fail(err)
	}

	if err := m.records.UpdateCompleted(record.ID, size, len(events)); err != nil {
		return fail(err)
	}

	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup written", "path", path, "events", len(events), "bytes", size)

	return m.records.GetByID(record.ID)
}

// Restore decrypts the snapshot at path and replaces the collection with it.
// A snapshot missing locally is fetched from the S3 mirror first. It returns
// the number of restored instances.
func (m *Manager) Restore(path, passphrase string) (int, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := m.download(context.Background(), path); err != nil {
			return 0, err
		}
	}

	plain, err := DecryptFile(path, passphrase)
	if err != nil {
		return 0, err
	}

	var snap snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	m.events.Replace(snap.Events)
	m.logger.Info("backup restored", "path", path, "events", len(snap.Events), "taken_at", snap.CreatedAt)
	return len(snap.Events), nil
}

// ErrNoBackup is returned by RestoreLatest when no completed backup exists.
var ErrNoBackup = errors.New("no completed backup")

// RestoreLatest restores the most recent completed backup.
func (m *Manager) RestoreLatest(passphrase string) (int, error) {
	latest, err := m.records.LatestCompleted()
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, ErrNoBackup
	}
	return m.Restore(latest.Path, passphrase)
}

// List returns the most recent backup records.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.records.List(limit)
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(retentionDays int) error {
	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	paths, err := m.records.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("remove backup file", "path", p, "error", err)
		}
	}
	m.deleteRemote(context.Background(), paths)
	return nil
}
