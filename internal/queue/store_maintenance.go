package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// UpdateHeartbeat refreshes the heartbeat of an in-progress item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := nowString()
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, id, StatusInProgress,
	); err != nil {
		return storageError("update heartbeat", err)
	}
	return nil
}

// RequeueStale routes in-progress items whose heartbeat is missing or older
// than cutoff through the retry path, so an interrupted upload counts as one
// failed attempt. It returns the items after the transition.
func (s *Store) RequeueStale(ctx context.Context, cutoff time.Time, reason string) ([]*Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM queue_items
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)
         ORDER BY enqueued_at, id`,
		StatusInProgress, formatTime(cutoff),
	)
	if err != nil {
		return nil, storageError("requeue stale", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, storageError("requeue stale", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storageError("requeue stale", err)
	}
	rows.Close()

	if strings.TrimSpace(reason) == "" {
		reason = StaleReason
	}
	recovered := make([]*Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.MarkRetry(ctx, id, reason)
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrItemNotFound) {
			continue
		}
		if err != nil {
			return recovered, err
		}
		recovered = append(recovered, item)
	}
	return recovered, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, storageError("stats", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storageError("stats", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("stats", err)
	}
	return stats, nil
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{
		Pending:    stats[StatusPending],
		InProgress: stats[StatusInProgress],
		Posted:     stats[StatusPosted],
		Failed:     stats[StatusFailed],
	}
	for _, count := range stats {
		health.Total += count
	}
	return health, nil
}

var expectedColumns = []string{
	"id",
	"payload_ref",
	"caption",
	"source",
	"status",
	"attempt_count",
	"error_message",
	"enqueued_at",
	"updated_at",
	"posted_at",
	"last_heartbeat",
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, storageError("check health", fmt.Errorf("stat queue database: %w", err))
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	fail := func(op string, err error) (DatabaseHealth, error) {
		health.Error = err.Error()
		return health, storageError("check health", fmt.Errorf("%s: %w", op, err))
	}

	if err := s.db.PingContext(connCtx); err != nil {
		return fail("ping", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fail("schema version", err)
	}

	var tableName string
	switch err := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'queue_items'").Scan(&tableName); {
	case errors.Is(err, sql.ErrNoRows):
		health.TableExists = false
	case err != nil:
		return fail("query table info", err)
	default:
		health.TableExists = true
	}

	if health.TableExists {
		colRows, err := s.db.QueryContext(connCtx, "SELECT name FROM pragma_table_info('queue_items')")
		if err != nil {
			return fail("table info", err)
		}
		present := make(map[string]struct{})
		for colRows.Next() {
			var name string
			if err := colRows.Scan(&name); err != nil {
				colRows.Close()
				return fail("scan table info", err)
			}
			present[name] = struct{}{}
		}
		colRows.Close()
		for _, col := range expectedColumns {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM queue_items").Scan(&health.TotalItems); err != nil {
			return fail("count queue items", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fail("integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
