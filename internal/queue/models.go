package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPosted     Status = "posted"
	StatusFailed     Status = "failed"
)

// InterruptedReason is recorded when an item is found in progress at daemon startup.
const InterruptedReason = "interrupted: daemon restarted while uploading"

// StaleReason is recorded when an in-progress item stops heartbeating.
const StaleReason = "interrupted: upload heartbeat expired"

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusPosted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts user input (e.g. "in-progress", "Posted") into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, status := range allStatuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown queue status %q", value)
}

// IsTerminal reports whether no automatic transition leaves this status.
func (s Status) IsTerminal() bool {
	return s == StatusPosted || s == StatusFailed
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID            int64
	PayloadRef    string
	Caption       string
	Source        string
	Status        Status
	AttemptCount  int
	ErrorMessage  string
	EnqueuedAt    time.Time
	UpdatedAt     time.Time
	PostedAt      *time.Time
	LastHeartbeat *time.Time
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	InProgress int
	Posted     int
	Failed     int
}

// DatabaseHealth captures diagnostics about the queue database file.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
