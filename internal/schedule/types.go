package schedule

import (
	"context"
	"errors"
	"time"

	"postline/internal/queue"
	"postline/internal/upload"
)

// ErrNotRunning is returned by RunNow when the scheduler loop is stopped.
var ErrNotRunning = errors.New("scheduler is not running")

// Trigger identifies what started a firing.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Result summarizes what a firing did.
type Result string

const (
	ResultProcessed Result = "processed"
	ResultEmpty     Result = "empty"
	ResultClaimLost Result = "claim_lost"
	ResultError     Result = "error"
)

// Store is the subset of the queue store the scheduler reads and claims from.
type Store interface {
	NextPending(ctx context.Context) (*queue.Item, error)
	TryClaim(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	RequeueStale(ctx context.Context, cutoff time.Time, reason string) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// Runner performs one upload attempt for a claimed item.
type Runner interface {
	Run(ctx context.Context, item *queue.Item) (upload.Result, error)
}

// FiringReport describes one completed firing.
type FiringReport struct {
	ID         string
	Trigger    Trigger
	Result     Result
	ItemID     int64
	PayloadRef string
	Upload     *upload.Result
	Recovered  int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Entry is one configured time of day and its next occurrence.
type Entry struct {
	Time string
	Spec string
	Next time.Time
}

// Status reports the scheduler's state.
type Status struct {
	Running      bool
	Busy         bool
	TimerWaiting bool
	Timezone     string
	Times        []string
	NextFiring   time.Time
	Firings      int64
	LastFiring   *FiringReport
}
