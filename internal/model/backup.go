package model

import "time"

type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusWriting   BackupStatus = "writing"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup records one encrypted snapshot of the event collection.
type Backup struct {
	ID           int64        `json:"id"`
	Filename     string       `json:"filename"`
	Path         string       `json:"path"`
	SizeBytes    int64        `json:"size_bytes"`
	EventCount   int          `json:"event_count"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
