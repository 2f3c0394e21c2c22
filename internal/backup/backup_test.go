package backup

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Sahilgupta2175/event-calendar/internal/database"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

type memCollection struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *memCollection) Snapshot() schedule.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schedule.State{Instances: append([]model.Event(nil), c.events...)}
}

func (c *memCollection) Replace(events []model.Event) {
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
}

func setupManager(t *testing.T, cfg Config, cb StatusCallback) (*Manager, *memCollection) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	events := &memCollection{events: []model.Event{
		{ID: "a", EventDefinition: model.EventDefinition{Title: "Dentist", Date: "2024-06-03", Time: "14:30"}},
		{ID: "b", EventDefinition: model.EventDefinition{Title: "Gym", Date: "2024-06-04", Time: "07:00"}},
	}}
	return NewManager(cfg, store.NewBackupStore(db), events, cb, slog.Default()), events
}

func TestManagerStateLifecycle(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	m2 := NewManager(Config{Dir: t.TempDir(), Passphrase: "pw"}, nil, nil, nil, slog.Default())
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, cb)
	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning || !received[0].InProgress {
		t.Errorf("first callback = %+v", received[0])
	}
	if received[1].State != StateIdle || received[1].LastBackup == nil {
		t.Errorf("second callback = %+v", received[1])
	}
}

func TestRunAndRestore(t *testing.T) {
	dir := t.TempDir()
	m, events := setupManager(t, Config{Dir: dir, Passphrase: "pw"}, nil)

	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if b.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q", b.Status)
	}
	if b.EventCount != 2 {
		t.Errorf("event count = %d, want 2", b.EventCount)
	}
	if filepath.Dir(b.Path) != dir {
		t.Errorf("path = %q, want inside %q", b.Path, dir)
	}
	info, err := os.Stat(b.Path)
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if info.Size() != b.SizeBytes {
		t.Errorf("size = %d, recorded %d", info.Size(), b.SizeBytes)
	}

	events.Replace(nil)

	n, err := m.Restore(b.Path, "pw")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d, want 2", n)
	}
	if got := events.Snapshot().Instances; len(got) != 2 || got[0].Title != "Dentist" {
		t.Errorf("restored events = %+v", got)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, events := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, nil)
	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := m.Restore(b.Path, "nope"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("err = %v, want ErrDecrypt", err)
	}
	if len(events.Snapshot().Instances) != 2 {
		t.Error("failed restore should leave the collection alone")
	}
}

func TestRestoreLatest(t *testing.T) {
	m, events := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, nil)

	if _, err := m.RestoreLatest("pw"); !errors.Is(err, ErrNoBackup) {
		t.Errorf("err = %v, want ErrNoBackup", err)
	}

	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	events.Replace([]model.Event{{ID: "only"}})

	n, err := m.RestoreLatest("pw")
	if err != nil {
		t.Fatalf("restore latest: %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d, want 2", n)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	m, _ := setupManager(t, Config{}, nil)
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error without a directory")
	}

	m2, _ := setupManager(t, Config{Dir: t.TempDir()}, nil)
	if _, err := m2.RunNow(context.Background()); err == nil {
		t.Error("expected error without a passphrase")
	}
}

func TestRunCancelledContext(t *testing.T) {
	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.RunNow(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCleanup(t *testing.T) {
	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw"}, nil)
	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Nothing is older than a day yet.
	if err := m.Cleanup(1); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(b.Path); err != nil {
		t.Errorf("recent backup removed: %v", err)
	}

	// Negative retention puts the cutoff in the future.
	if err := m.Cleanup(-1); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(b.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old backup still present: %v", err)
	}
	list, _ := m.List(10)
	if len(list) != 0 {
		t.Errorf("records = %d, want 0", len(list))
	}
}

func TestValidateSchedule(t *testing.T) {
	if err := ValidateSchedule("0 3 * * *"); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	if err := ValidateSchedule("every night"); err == nil {
		t.Error("invalid schedule accepted")
	}
}

func TestManagerStartStop(t *testing.T) {
	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw", Schedule: "0 3 * * *"}, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerStartBadSchedule(t *testing.T) {
	m, _ := setupManager(t, Config{Dir: t.TempDir(), Passphrase: "pw", Schedule: "bogus"}, nil)
	if err := m.Start(); err == nil {
		t.Error("expected error for bad schedule")
	}
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{Schedule: "* * * * *"}, nil, nil, nil, slog.Default())
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Stop()
}
