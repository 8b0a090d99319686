// Package notifications delivers upload lifecycle events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Per-event toggles in the [notifications]
// config section decide which events leave the process; errors and test
// messages are always sent.
package notifications
