// Package logging assembles structured slog loggers and formatting helpers used
// across Postline.
//
// It owns the console and JSON handlers, the per-run daemon log file, and the
// context-aware helpers that tag log lines with queue item IDs, firing IDs, and
// correlation IDs. WarnWithContext and ErrorWithContext enforce the
// event_type/error_hint/impact triple on operator-facing problems.
package logging
