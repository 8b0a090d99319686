package queue

import (
	"context"
	"strings"
)

// TryClaim atomically moves a pending item to in_progress. It returns false
// when the item is not pending or another item already holds the slot.
func (s *Store) TryClaim(ctx context.Context, id int64) (bool, error) {
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?
           AND NOT EXISTS (SELECT 1 FROM queue_items WHERE status = ?)`,
		StatusInProgress, now, now,
		id, StatusPending,
		StatusInProgress,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return false, nil
		}
		return false, storageError("try claim", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError("try claim", err)
	}
	return affected == 1, nil
}

// MarkPosted records a successful publish. Calling it on an already posted
// item is a no-op.
func (s *Store) MarkPosted(ctx context.Context, id int64) error {
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, posted_at = ?, updated_at = ?, error_message = NULL, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		StatusPosted, now, now,
		id, StatusInProgress,
	)
	if err != nil {
		return storageError("mark posted", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return storageError("mark posted", err)
	} else if affected == 1 {
		return nil
	}
	return s.explainNoop(ctx, id, "mark posted", StatusPosted)
}

// MarkRetry records a retryable failure. The attempt counter is incremented;
// the item returns to pending while attempt_count <= max retry, otherwise it
// is failed. The updated item is returned.
func (s *Store) MarkRetry(ctx context.Context, id int64, message string) (*Item, error) {
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET attempt_count = attempt_count + 1,
             status = CASE WHEN attempt_count + 1 > ? THEN ? ELSE ? END,
             error_message = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		s.maxRetry, StatusFailed, StatusPending,
		nullableString(strings.TrimSpace(message)), now,
		id, StatusInProgress,
	)
	if err != nil {
		return nil, storageError("mark retry", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageError("mark retry", err)
	}
	if affected == 0 {
		return nil, s.explainNoop(ctx, id, "mark retry", "")
	}
	return s.GetByID(ctx, id)
}

// MarkFailed records a permanent failure without touching the attempt counter.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, error_message = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		StatusFailed, nullableString(strings.TrimSpace(message)), nowString(),
		id, StatusInProgress,
	)
	if err != nil {
		return storageError("mark failed", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return storageError("mark failed", err)
	} else if affected == 1 {
		return nil
	}
	return s.explainNoop(ctx, id, "mark failed", StatusFailed)
}

// ResetFailed returns a failed item to pending with attempt_count 0. The
// original enqueued_at is kept so the item regains its FIFO position.
func (s *Store) ResetFailed(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, attempt_count = 0, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, nowString(),
		id, StatusFailed,
	)
	if err != nil {
		return false, storageError("reset failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError("reset failed", err)
	}
	if affected == 0 {
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return false, err
		}
		if item == nil {
			return false, ErrItemNotFound
		}
	}
	return affected == 1, nil
}

// ResetAllFailed returns every failed item to pending.
func (s *Store) ResetAllFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, attempt_count = 0, error_message = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending, nowString(), StatusFailed,
	)
	if err != nil {
		return 0, storageError("reset all failed", err)
	}
	return res.RowsAffected()
}

// explainNoop turns a zero-row transition into nil (already in the target
// state), ErrItemNotFound, or ErrInvalidTransition.
func (s *Store) explainNoop(ctx context.Context, id int64, operation string, idempotentTarget Status) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}
	if idempotentTarget.IsTerminal() && item.Status == idempotentTarget {
		return nil
	}
	return transitionError(id, item.Status, operation)
}
