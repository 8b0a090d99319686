package api

import (
	"context"
	"errors"

	"postline/internal/queue"
)

// QueueResetService captures queue operations needed by per-item reset workflows.
type QueueResetService interface {
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	ResetFailed(ctx context.Context, id int64) (bool, error)
}

type ResetItemOutcome string

const (
	ResetItemUpdated   ResetItemOutcome = "reset"
	ResetItemNotFound  ResetItemOutcome = "not_found"
	ResetItemNotFailed ResetItemOutcome = "not_failed"
)

type ResetItemResult struct {
	ID          int64            `json:"id"`
	Outcome     ResetItemOutcome `json:"outcome"`
	PriorStatus string           `json:"priorStatus,omitempty"`
}

type ResetItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []ResetItemResult `json:"items"`
}

// ResetFailedItemsByID returns failed items to pending one-by-one so each ID
// can report reset, not_found, or not_failed.
func ResetFailedItemsByID(ctx context.Context, service QueueResetService, ids []int64) (ResetItemsResult, error) {
	result := ResetItemsResult{Items: make([]ResetItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.GetByID(ctx, id)
		if err != nil {
			return ResetItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, ResetItemResult{ID: id, Outcome: ResetItemNotFound})
			continue
		}
		if item.Status != queue.StatusFailed {
			result.Items = append(result.Items, ResetItemResult{ID: id, Outcome: ResetItemNotFailed, PriorStatus: string(item.Status)})
			continue
		}
		updated, err := service.ResetFailed(ctx, id)
		if errors.Is(err, queue.ErrItemNotFound) {
			result.Items = append(result.Items, ResetItemResult{ID: id, Outcome: ResetItemNotFound})
			continue
		}
		if err != nil {
			return ResetItemsResult{}, err
		}
		if !updated {
			result.Items = append(result.Items, ResetItemResult{ID: id, Outcome: ResetItemNotFailed, PriorStatus: string(item.Status)})
			continue
		}
		result.UpdatedCount++
		result.Items = append(result.Items, ResetItemResult{ID: id, Outcome: ResetItemUpdated, PriorStatus: string(item.Status)})
	}
	return result, nil
}
