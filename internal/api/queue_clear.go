package api

import (
	"context"

	"postline/internal/queue"
	"postline/internal/services"
)

// QueueClearService captures the bulk delete used by clear workflows.
type QueueClearService interface {
	ClearByState(ctx context.Context, states ...queue.Status) (int64, error)
}

// ClearItemsByStatus parses user-facing status names and removes matching
// items. An empty list clears every state except in progress.
func ClearItemsByStatus(ctx context.Context, service QueueClearService, statuses []string) (int64, error) {
	states := make([]queue.Status, 0, len(statuses))
	for _, raw := range statuses {
		status, err := queue.ParseStatus(raw)
		if err != nil {
			return 0, services.Wrap(services.ErrValidation, "api", "clear queue", "", err)
		}
		states = append(states, status)
	}
	return service.ClearByState(ctx, states...)
}
