package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID            int64  `json:"id"`
	PayloadRef    string `json:"payloadRef"`
	PayloadName   string `json:"payloadName"`
	Caption       string `json:"caption,omitempty"`
	Source        string `json:"source,omitempty"`
	Status        string `json:"status"`
	AttemptCount  int    `json:"attemptCount"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	EnqueuedAt    string `json:"enqueuedAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	PostedAt      string `json:"postedAt,omitempty"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty"`
}

// FiringReport describes one scheduler firing.
type FiringReport struct {
	ID                 string   `json:"id"`
	Trigger            string   `json:"trigger"`
	Result             string   `json:"result"`
	ItemID             int64    `json:"itemId,omitempty"`
	PayloadName        string   `json:"payloadName,omitempty"`
	Outcome            string   `json:"outcome,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	Status             string   `json:"status,omitempty"`
	AttemptCount       int      `json:"attemptCount,omitempty"`
	Phases             []string `json:"phases,omitempty"`
	TimedOut           bool     `json:"timedOut,omitempty"`
	SessionUnavailable bool     `json:"sessionUnavailable,omitempty"`
	Recovered          int      `json:"recovered,omitempty"`
	Error              string   `json:"error,omitempty"`
	StartedAt          string   `json:"startedAt,omitempty"`
	FinishedAt         string   `json:"finishedAt,omitempty"`
	DurationMillis     int64    `json:"durationMillis"`
}

// ScheduleEntry is one configured posting time and its next occurrence.
type ScheduleEntry struct {
	Time string `json:"time"`
	Spec string `json:"spec"`
	Next string `json:"next"`
}

// ScheduleResponse lists the configured posting times.
type ScheduleResponse struct {
	Timezone string          `json:"timezone"`
	Entries  []ScheduleEntry `json:"entries"`
}

// SchedulerStatus summarizes the scheduler loop.
type SchedulerStatus struct {
	Running      bool          `json:"running"`
	Busy         bool          `json:"busy"`
	TimerWaiting bool          `json:"timerWaiting"`
	Timezone     string        `json:"timezone"`
	Times        []string      `json:"times"`
	NextFiring   string        `json:"nextFiring,omitempty"`
	Firings      int64         `json:"firings"`
	LastFiring   *FiringReport `json:"lastFiring,omitempty"`
}

// ComponentHealth mirrors readiness reporting for daemon collaborators.
type ComponentHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	QueueStats   map[string]int     `json:"queueStats"`
	Scheduler    SchedulerStatus    `json:"scheduler"`
	Health       []ComponentHealth  `json:"health"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// EnqueueRequest adds a media file to the queue.
type EnqueueRequest struct {
	PayloadRef string `json:"payloadRef"`
	Caption    string `json:"caption"`
	Source     string `json:"source,omitempty"`
	Import     bool   `json:"import,omitempty"`
}

// RunNowResponse wraps the report of a manual firing.
type RunNowResponse struct {
	Firing FiringReport `json:"firing"`
}
