package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"postline/internal/logging"
)

// startHeartbeat refreshes the item heartbeat every interval until the
// returned stop function is called.
func startHeartbeat(ctx context.Context, store Store, logger *slog.Logger, itemID int64, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := store.UpdateHeartbeat(hbCtx, itemID); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					logger.Warn("heartbeat update failed",
						logging.Error(err),
						logging.String(logging.FieldEventType, "heartbeat_failed"),
					)
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
