package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"postline/internal/services"
)

// Enqueue inserts a new pending item with attempt_count 0.
func (s *Store) Enqueue(ctx context.Context, payloadRef, caption string) (*Item, error) {
	return s.EnqueueFrom(ctx, payloadRef, caption, "")
}

// EnqueueFrom inserts a new pending item and records where it came from.
func (s *Store) EnqueueFrom(ctx context.Context, payloadRef, caption, source string) (*Item, error) {
	payloadRef = strings.TrimSpace(payloadRef)
	if payloadRef == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "payload reference is required", nil)
	}
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            payload_ref, caption, source, status, attempt_count, enqueued_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		payloadRef,
		nullableString(caption),
		nullableString(strings.TrimSpace(source)),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, storageError("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageError("enqueue", fmt.Errorf("last insert id: %w", err))
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. It returns nil, nil when the item does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get item", err)
	}
	return item, nil
}

// NextPending returns the FIFO-earliest pending item without claiming it.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY enqueued_at, id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("next pending", err)
	}
	return item, nil
}

// ListByState returns items in the given state in FIFO order.
func (s *Store) ListByState(ctx context.Context, state Status) ([]*Item, error) {
	return s.List(ctx, state)
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	query += ` ORDER BY enqueued_at, id`

	rows, err := s.db.QueryContext(ctx, query, statusArgs(statuses)...)
	if err != nil {
		return nil, storageError("list", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, storageError("list", err)
	}
	return items, nil
}

// PostedBefore returns posted items whose posted_at precedes cutoff.
func (s *Store) PostedBefore(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? AND posted_at IS NOT NULL AND posted_at < ? ORDER BY posted_at, id`,
		StatusPosted,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, storageError("posted before", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, storageError("posted before", err)
	}
	return items, nil
}

// Remove deletes an item unless it is currently in progress.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ? AND status <> ?`, id, StatusInProgress)
	if err != nil {
		return false, storageError("remove", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError("remove", err)
	}
	if affected == 0 {
		item, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return false, getErr
		}
		if item != nil && item.Status == StatusInProgress {
			return false, transitionError(id, item.Status, "remove")
		}
	}
	return affected > 0, nil
}

// ClearPosted removes posted items whose posted_at precedes cutoff.
// A zero cutoff removes every posted item.
func (s *Store) ClearPosted(ctx context.Context, cutoff time.Time) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if cutoff.IsZero() {
		res, err = s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusPosted)
	} else {
		res, err = s.execWithRetry(ctx,
			`DELETE FROM queue_items WHERE status = ? AND posted_at IS NOT NULL AND posted_at < ?`,
			StatusPosted, formatTime(cutoff))
	}
	if err != nil {
		return 0, storageError("clear posted", err)
	}
	return res.RowsAffected()
}

// ClearByState removes items in the given states. No states means every
// state except in progress; in-progress items are never removed.
func (s *Store) ClearByState(ctx context.Context, states ...Status) (int64, error) {
	if len(states) == 0 {
		states = []Status{StatusPending, StatusPosted, StatusFailed}
	}
	for _, state := range states {
		if state == StatusInProgress {
			return 0, services.Wrap(services.ErrValidation, "queue", "clear", "in-progress items cannot be cleared", nil)
		}
		if _, err := ParseStatus(string(state)); err != nil {
			return 0, services.Wrap(services.ErrValidation, "queue", "clear", "", err)
		}
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM queue_items WHERE status IN (`+makePlaceholders(len(states))+`)`,
		statusArgs(states)...)
	if err != nil {
		return 0, storageError("clear", err)
	}
	return res.RowsAffected()
}
