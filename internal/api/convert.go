package api

import (
	"path/filepath"
	"time"

	"postline/internal/health"
	"postline/internal/queue"
	"postline/internal/schedule"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:           item.ID,
		PayloadRef:   item.PayloadRef,
		PayloadName:  PayloadName(item.PayloadRef),
		Caption:      item.Caption,
		Source:       item.Source,
		Status:       string(item.Status),
		AttemptCount: item.AttemptCount,
		ErrorMessage: item.ErrorMessage,
		EnqueuedAt:   FormatTime(item.EnqueuedAt),
		UpdatedAt:    FormatTime(item.UpdatedAt),
	}
	if item.PostedAt != nil {
		dto.PostedAt = FormatTime(*item.PostedAt)
	}
	if item.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*item.LastHeartbeat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item))
	}
	return out
}

// MergeQueueStats converts status counts to string keys, including a zero
// entry for every known status.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromFiringReport converts a scheduler firing report.
func FromFiringReport(report schedule.FiringReport) FiringReport {
	dto := FiringReport{
		ID:          report.ID,
		Trigger:     string(report.Trigger),
		Result:      string(report.Result),
		ItemID:      report.ItemID,
		PayloadName: PayloadName(report.PayloadRef),
		Recovered:   report.Recovered,
		Error:       report.Error,
		StartedAt:   FormatTime(report.StartedAt),
		FinishedAt:  FormatTime(report.FinishedAt),
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		dto.DurationMillis = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	}
	if up := report.Upload; up != nil {
		dto.Outcome = string(up.Outcome.Kind)
		dto.Reason = up.Outcome.Reason
		dto.Status = string(up.Status)
		dto.AttemptCount = up.Attempts
		dto.TimedOut = up.TimedOut
		dto.SessionUnavailable = up.SessionUnavailable
		dto.Phases = make([]string, 0, len(up.Phases))
		for _, phase := range up.Phases {
			dto.Phases = append(dto.Phases, string(phase))
		}
	}
	return dto
}

// FromSchedulerStatus converts the scheduler status snapshot.
func FromSchedulerStatus(status schedule.Status) SchedulerStatus {
	dto := SchedulerStatus{
		Running:      status.Running,
		Busy:         status.Busy,
		TimerWaiting: status.TimerWaiting,
		Timezone:     status.Timezone,
		Times:        append([]string(nil), status.Times...),
		NextFiring:   FormatTime(status.NextFiring),
		Firings:      status.Firings,
	}
	if status.LastFiring != nil {
		last := FromFiringReport(*status.LastFiring)
		dto.LastFiring = &last
	}
	return dto
}

// FromScheduleEntries converts schedule entries, keeping next times in the
// scheduler's timezone.
func FromScheduleEntries(entries []schedule.Entry) []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(entries))
	for _, entry := range entries {
		next := ""
		if !entry.Next.IsZero() {
			next = entry.Next.Format(time.RFC3339)
		}
		out = append(out, ScheduleEntry{Time: entry.Time, Spec: entry.Spec, Next: next})
	}
	return out
}

// FromHealth converts component health records.
func FromHealth(records []health.Health) []ComponentHealth {
	out := make([]ComponentHealth, 0, len(records))
	for _, record := range records {
		out = append(out, ComponentHealth{Name: record.Name, Ready: record.Ready, Detail: record.Detail})
	}
	return out
}

// FormatTime renders a timestamp in the API format, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// PayloadName returns the display name of a payload reference.
func PayloadName(ref string) string {
	if ref == "" {
		return ""
	}
	return filepath.Base(ref)
}
