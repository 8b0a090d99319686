package queueaccess

import (
	"context"
	"time"

	"postline/internal/api"
	"postline/internal/config"
	"postline/internal/intake"
	"postline/internal/ipc"
	"postline/internal/queue"
)

// AddRequest describes a media file to enqueue.
type AddRequest struct {
	Path    string
	Caption string
	Source  string
	Import  bool
}

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	Add(ctx context.Context, req AddRequest) (api.QueueItem, error)
	ResetFailed(ctx context.Context, ids []int64) (api.ResetItemsResult, error)
	Remove(ctx context.Context, ids []int64) (api.RemoveItemsResult, error)
	Clear(ctx context.Context, statuses []string) (int64, error)
	ClearPosted(ctx context.Context, olderThanDays int) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	// Direct reports whether operations bypass the daemon.
	Direct() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(cfg *config.Config, store *queue.Store) Access {
	return &storeAccess{cfg: cfg, store: store, service: api.NewQueueService(store)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Direct() bool { return false }

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.Found {
		return nil, nil
	}
	return &resp.Item, nil
}

func (a *ipcAccess) Add(_ context.Context, req AddRequest) (api.QueueItem, error) {
	resp, err := a.client.QueueAdd(ipc.QueueAddRequest{
		Path:    req.Path,
		Caption: req.Caption,
		Source:  req.Source,
		Import:  req.Import,
	})
	if err != nil {
		return api.QueueItem{}, err
	}
	return resp.Item, nil
}

func (a *ipcAccess) ResetFailed(_ context.Context, ids []int64) (api.ResetItemsResult, error) {
	resp, err := a.client.QueueResetFailed(ids)
	if err != nil {
		return api.ResetItemsResult{}, err
	}
	return api.ResetItemsResult{UpdatedCount: resp.Updated, Items: resp.Items}, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []int64) (api.RemoveItemsResult, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return api.RemoveItemsResult{}, err
	}
	return api.RemoveItemsResult{RemovedCount: resp.Removed, Items: resp.Items}, nil
}

func (a *ipcAccess) Clear(_ context.Context, statuses []string) (int64, error) {
	resp, err := a.client.QueueClear(statuses)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearPosted(_ context.Context, olderThanDays int) (int64, error) {
	resp, err := a.client.QueueClearPosted(olderThanDays)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:      resp.Total,
		Pending:    resp.Pending,
		InProgress: resp.InProgress,
		Posted:     resp.Posted,
		Failed:     resp.Failed,
	}, nil
}

type storeAccess struct {
	cfg     *config.Config
	store   *queue.Store
	service *api.QueueService
}

func (a *storeAccess) Direct() bool { return true }

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	filters := make([]queue.Status, 0, len(statuses))
	for _, s := range statuses {
		parsed, err := queue.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		filters = append(filters, parsed)
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Add(ctx context.Context, req AddRequest) (api.QueueItem, error) {
	payload, err := intake.Prepare(a.cfg, req.Path, req.Import)
	if err != nil {
		return api.QueueItem{}, err
	}
	source := req.Source
	if source == "" {
		source = "cli"
	}
	item, err := a.store.EnqueueFrom(ctx, payload, req.Caption, source)
	if err != nil {
		return api.QueueItem{}, err
	}
	return api.FromQueueItem(item), nil
}

func (a *storeAccess) ResetFailed(ctx context.Context, ids []int64) (api.ResetItemsResult, error) {
	if len(ids) == 0 {
		updated, err := a.store.ResetAllFailed(ctx)
		return api.ResetItemsResult{UpdatedCount: updated}, err
	}
	return api.ResetFailedItemsByID(ctx, a.store, ids)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (api.RemoveItemsResult, error) {
	return api.RemoveItemsByID(ctx, a.store, ids)
}

func (a *storeAccess) Clear(ctx context.Context, statuses []string) (int64, error) {
	return api.ClearItemsByStatus(ctx, a.store, statuses)
}

func (a *storeAccess) ClearPosted(ctx context.Context, olderThanDays int) (int64, error) {
	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = time.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	}
	return a.store.ClearPosted(ctx, cutoff)
}

func (a *storeAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}
