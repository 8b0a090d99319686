package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"postline/internal/logging"
	"postline/internal/notifications"
	"postline/internal/queue"
	"postline/internal/services"
)

// fire runs one firing: sweep stale items, pick the FIFO head, claim it,
// and hand it to the runner. At most one item is processed.
func (s *Scheduler) fire(ctx context.Context, trigger Trigger) (report FiringReport) {
	report = FiringReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	ctx = services.WithFiringID(ctx, report.ID)
	ctx = services.WithTrigger(ctx, string(trigger))
	logger := logging.WithContext(ctx, s.logger)

	s.setBusy(true)
	defer func() {
		if r := recover(); r != nil {
			report.Result = ResultError
			report.Error = fmt.Sprintf("firing panicked: %v", r)
			logging.ErrorWithContext(logger, "firing panicked", "firing_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "a claimed item stays in progress until stale recovery requeues it"),
			)
		}
		s.setBusy(false)
		report.FinishedAt = time.Now()
		s.metrics.ObserveFiring(string(report.Trigger), string(report.Result))
		s.refreshGauges(ctx)
		s.recordReport(report)
	}()

	if s.heartbeatTimeout > 0 {
		recovered, err := s.requeue(ctx, s.now().Add(-s.heartbeatTimeout), queue.StaleReason)
		if err != nil {
			return s.failFiring(logger, report, "stale sweep failed", err)
		}
		report.Recovered = len(recovered)
	}

	item, err := s.store.NextPending(ctx)
	if err != nil {
		return s.failFiring(logger, report, "failed to read next pending item", err)
	}
	if item == nil {
		report.Result = ResultEmpty
		logger.Info("firing found no pending items",
			logging.String(logging.FieldEventType, "firing_empty"),
		)
		return report
	}
	report.ItemID = item.ID
	report.PayloadRef = item.PayloadRef

	claimed, err := s.store.TryClaim(ctx, item.ID)
	if err != nil {
		return s.failFiring(logger, report, "failed to claim item", err)
	}
	if !claimed {
		report.Result = ResultClaimLost
		logger.Info("item claimed elsewhere; skipping firing",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "claim_lost"),
		)
		return report
	}

	claimedItem, err := s.store.GetByID(ctx, item.ID)
	if err != nil || claimedItem == nil {
		claimedItem = item
		claimedItem.Status = queue.StatusInProgress
	}

	logger.Info("firing claimed item",
		logging.Int64(logging.FieldItemID, claimedItem.ID),
		logging.String("payload", filepath.Base(claimedItem.PayloadRef)),
		logging.Int("attempt_count", claimedItem.AttemptCount),
		logging.String(logging.FieldEventType, "item_claimed"),
	)
	result, err := s.runner.Run(ctx, claimedItem)
	report.Upload = &result
	if err != nil {
		return s.failFiring(logger, report, "upload outcome was not recorded", err)
	}
	report.Result = ResultProcessed
	logger.Info("firing complete",
		logging.Int64(logging.FieldItemID, claimedItem.ID),
		logging.String("outcome", string(result.Outcome.Kind)),
		logging.String("status", string(result.Status)),
		logging.Duration("duration", result.Duration),
		logging.String(logging.FieldEventType, "firing_complete"),
	)
	return report
}

func (s *Scheduler) failFiring(logger *slog.Logger, report FiringReport, msg string, err error) FiringReport {
	report.Result = ResultError
	report.Error = err.Error()
	s.metrics.IncStoreErrors()
	logger.Error(msg,
		logging.Error(err),
		logging.String(logging.FieldEventType, "firing_error"),
		logging.String(logging.FieldErrorHint, "check the queue database and the daemon log"),
	)
	return report
}

// RecoverInterrupted routes every in-progress item through the retry path.
// It runs at startup, before any firing, when no attempt can be live.
func (s *Scheduler) RecoverInterrupted(ctx context.Context) ([]*queue.Item, error) {
	recovered, err := s.requeue(ctx, s.now().Add(time.Hour), queue.InterruptedReason)
	if err != nil {
		s.metrics.IncStoreErrors()
		return recovered, services.Wrap(services.ErrStorage, "scheduler", "recover interrupted", "", err)
	}
	if len(recovered) > 0 {
		s.logger.Info("recovered interrupted items",
			logging.Int("count", len(recovered)),
			logging.String(logging.FieldEventType, "recovery_complete"),
		)
	}
	return recovered, nil
}

func (s *Scheduler) requeue(ctx context.Context, cutoff time.Time, reason string) ([]*queue.Item, error) {
	recovered, err := s.store.RequeueStale(ctx, cutoff, reason)
	for _, item := range recovered {
		logging.WarnWithContext(s.logger, "requeued interrupted item", "item_recovered",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("status", string(item.Status)),
			logging.Int("attempt_count", item.AttemptCount),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "the interrupted upload counts as one failed attempt"),
		)
		s.notify(ctx, notifications.EventItemRecovered, notifications.Payload{
			"itemID":   item.ID,
			"payload":  filepath.Base(item.PayloadRef),
			"attempts": item.AttemptCount,
			"reason":   reason,
		})
	}
	s.metrics.AddRecovered(len(recovered))
	return recovered, err
}

func (s *Scheduler) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}

func (s *Scheduler) refreshGauges(ctx context.Context) map[queue.Status]int {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Debug("queue stats unavailable", logging.Error(err))
		return nil
	}
	counts := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		counts[string(status)] = stats[status]
	}
	s.metrics.SetQueueItems(counts)
	return stats
}

func (s *Scheduler) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.refreshGauges(ctx)
			if stats == nil {
				continue
			}
			s.logger.Info("queue summary",
				logging.Int("pending", stats[queue.StatusPending]),
				logging.Int("in_progress", stats[queue.StatusInProgress]),
				logging.Int("posted", stats[queue.StatusPosted]),
				logging.Int("failed", stats[queue.StatusFailed]),
				logging.Time("next_firing", s.nextFiring()),
				logging.String(logging.FieldEventType, "queue_summary"),
			)
		}
	}
}
