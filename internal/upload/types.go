package upload

import (
	"context"
	"time"

	"postline/internal/publisher"
	"postline/internal/queue"
)

// Phase names a step of the per-attempt state machine.
type Phase string

const (
	PhaseStart         Phase = "start"
	PhaseSessionLoaded Phase = "session_loaded"
	PhaseSubmitted     Phase = "submitted"
	PhaseVerified      Phase = "verified"
	PhaseDone          Phase = "done"
)

// Store is the subset of the queue store the coordinator writes to.
type Store interface {
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	UpdateHeartbeat(ctx context.Context, id int64) error
	MarkPosted(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, message string) (*queue.Item, error)
	MarkFailed(ctx context.Context, id int64, message string) error
}

// Result describes one completed attempt.
type Result struct {
	ItemID   int64
	Outcome  publisher.Outcome
	Phases   []Phase
	Status   queue.Status
	Attempts int
	Caption  string
	Duration time.Duration
	// TimedOut is set when the attempt exceeded the submit timeout.
	TimedOut bool
	// SessionUnavailable is set when the session could not be loaded or verified.
	SessionUnavailable bool
}

// Reached reports whether the attempt passed through phase.
func (r Result) Reached(phase Phase) bool {
	for _, p := range r.Phases {
		if p == phase {
			return true
		}
	}
	return false
}
