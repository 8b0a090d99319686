// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates queue items, scheduler state, and firing reports
// into transport-friendly DTOs so the CLI and other consumers never depend on
// internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with retry accounting
// and timestamps.
//
// SchedulerStatus / FiringReport / ScheduleEntry: loop state, the outcome of a
// firing, and the configured times with their next occurrence.
//
// DaemonStatus: aggregated runtime information including component health
// and external dependencies.
//
// # Converters
//
// FromQueueItem, FromFiringReport, FromSchedulerStatus, FromScheduleEntries,
// and FromHealth map internal values onto DTOs. MergeQueueStats fills every
// known status so consumers always see a zero count instead of a missing key.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums are exposed as lowercase strings and
// timestamps as RFC3339 with milliseconds in UTC.
package api
