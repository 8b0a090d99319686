package api

import (
	"context"
	"errors"

	"postline/internal/queue"
)

// QueueRemoveService captures queue operations needed by per-item remove workflows.
type QueueRemoveService interface {
	Remove(ctx context.Context, id int64) (bool, error)
}

type RemoveItemOutcome string

const (
	RemoveItemRemoved    RemoveItemOutcome = "removed"
	RemoveItemNotFound   RemoveItemOutcome = "not_found"
	RemoveItemInProgress RemoveItemOutcome = "in_progress"
)

type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	RemovedCount int64              `json:"removedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// RemoveItemsByID removes queue items one-by-one so each ID can report
// removed, not_found, or in_progress.
func RemoveItemsByID(ctx context.Context, service QueueRemoveService, ids []int64) (RemoveItemsResult, error) {
	result := RemoveItemsResult{Items: make([]RemoveItemResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := service.Remove(ctx, id)
		if errors.Is(err, queue.ErrInvalidTransition) {
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemInProgress})
			continue
		}
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if removed {
			result.RemovedCount++
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemNotFound})
	}
	return result, nil
}
