package ipc

import "postline/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon scheduler.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// QueueItem mirrors the HTTP API queue DTO for internal IPC callers.
type QueueItem = api.QueueItem

// StatusResponse represents combined daemon and scheduler status.
type StatusResponse = api.DaemonStatus

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest fetches a single queue item by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single queue entry. Found is false when
// the id does not exist.
type QueueDescribeResponse struct {
	Found bool      `json:"found"`
	Item  QueueItem `json:"item"`
}

// QueueAddRequest enqueues a media file.
type QueueAddRequest struct {
	Path    string `json:"path"`
	Caption string `json:"caption"`
	Source  string `json:"source"`
	Import  bool   `json:"import"`
}

// QueueAddResponse contains the queued item.
type QueueAddResponse struct {
	Item QueueItem `json:"item"`
}

// QueueResetFailedRequest resets failed items. Empty list means all failed items.
type QueueResetFailedRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueResetFailedResponse reports reset outcomes.
type QueueResetFailedResponse struct {
	Updated int64                 `json:"updated"`
	Items   []api.ResetItemResult `json:"items,omitempty"`
}

// QueueRemoveRequest removes specific items by ID.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports removal outcomes.
type QueueRemoveResponse struct {
	Removed int64                  `json:"removed"`
	Items   []api.RemoveItemResult `json:"items,omitempty"`
}

// QueueClearRequest removes items in the listed statuses. An empty list
// clears everything that is not in progress.
type QueueClearRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearPostedRequest removes posted items. Zero OlderThanDays removes all of them.
type QueueClearPostedRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// QueueClearPostedResponse reports number of removed entries.
type QueueClearPostedResponse struct {
	Removed      int64 `json:"removed"`
	MediaDeleted int   `json:"media_deleted"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Posted     int `json:"posted"`
	Failed     int `json:"failed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// RunNowRequest triggers a manual firing.
type RunNowRequest struct{}

// RunNowResponse reports the manual firing.
type RunNowResponse = api.RunNowResponse

// ScheduleRequest lists the configured posting times.
type ScheduleRequest struct{}

// ScheduleResponse lists the configured posting times.
type ScheduleResponse = api.ScheduleResponse

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	ItemID     int64  `json:"item_id"`
	Level      string `json:"level"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
