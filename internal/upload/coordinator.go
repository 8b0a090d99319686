package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postline/internal/caption"
	"postline/internal/config"
	"postline/internal/logging"
	"postline/internal/metrics"
	"postline/internal/notifications"
	"postline/internal/publisher"
	"postline/internal/queue"
	"postline/internal/services"
	"postline/internal/session"
)

// Coordinator runs publish attempts for claimed items.
type Coordinator struct {
	store     Store
	sessions  session.Loader
	adapter   publisher.Adapter
	captions  caption.Policy
	notifier  notifications.Service
	metrics   *metrics.Recorder
	logger    *slog.Logger
	maxRetry  int
	timeout   time.Duration
	grace     time.Duration
	heartbeat time.Duration
	checkRef  func(ref string) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier sets the notification sink.
func WithNotifier(n notifications.Service) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = r }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPayloadCheck replaces the payload existence check. Passing nil
// disables the check.
func WithPayloadCheck(fn func(ref string) error) Option {
	return func(c *Coordinator) { c.checkRef = fn }
}

// WithTimings overrides the submit timeout, abort grace, and heartbeat
// interval taken from config. Zero values keep the configured setting.
func WithTimings(submit, grace, heartbeat time.Duration) Option {
	return func(c *Coordinator) {
		if submit > 0 {
			c.timeout = submit
		}
		if grace > 0 {
			c.grace = grace
		}
		if heartbeat > 0 {
			c.heartbeat = heartbeat
		}
	}
}

// NewCoordinator wires a coordinator from config and its collaborators.
func NewCoordinator(cfg *config.Config, store Store, sessions session.Loader, adapter publisher.Adapter, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		sessions:  sessions,
		adapter:   adapter,
		captions:  caption.PolicyFromConfig(cfg),
		notifier:  notifications.NewService(nil),
		logger:    logging.NewNop(),
		maxRetry:  cfg.Upload.MaxRetry,
		timeout:   cfg.SubmitTimeout(),
		grace:     cfg.AbortGrace(),
		heartbeat: cfg.HeartbeatInterval(),
		checkRef:  statPayload,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "upload")
	return c
}

func statPayload(ref string) error {
	info, err := os.Stat(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "upload", "check payload", "payload not found: "+ref, nil)
		}
		return err
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "upload", "check payload", "payload is a directory: "+ref, nil)
	}
	return nil
}

// Run executes one attempt for an item the caller has already claimed. The
// returned error is non-nil only when the outcome could not be recorded.
func (c *Coordinator) Run(ctx context.Context, item *queue.Item) (Result, error) {
	if item == nil {
		return Result{}, services.Wrap(services.ErrValidation, "upload", "run", "item is required", nil)
	}
	started := time.Now()
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, c.logger)

	result := Result{ItemID: item.ID, Phases: []Phase{PhaseStart}}
	result.Caption = c.captions.Resolve(item.Caption)

	outcome := c.attempt(ctx, logger, item, &result)
	result.Outcome = outcome
	result.Phases = append(result.Phases, PhaseVerified)
	result.Duration = time.Since(started)

	return c.record(ctx, logger, item, result)
}

func (c *Coordinator) attempt(ctx context.Context, logger *slog.Logger, item *queue.Item, result *Result) (outcome publisher.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "upload attempt panicked", "attempt_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "inspect the session loader and payload check"),
			)
			outcome = publisher.Transient(fmt.Sprintf("internal panic: %v", r))
		}
	}()

	if c.checkRef != nil {
		if err := c.checkRef(item.PayloadRef); err != nil {
			logger.Warn("payload check failed",
				logging.String("payload", item.PayloadRef),
				logging.Error(err),
				logging.String(logging.FieldEventType, "payload_missing"),
				logging.String(logging.FieldErrorHint, "re-add the media file and reset the item"),
			)
			if errors.Is(err, services.ErrNotFound) {
				return publisher.Permanent(fmt.Sprintf("payload not found: %s", item.PayloadRef))
			}
			if errors.Is(err, services.ErrValidation) {
				return publisher.Permanent(err.Error())
			}
			return publisher.Transient(fmt.Sprintf("check payload: %v", err))
		}
	}

	handle, err := c.loadSession(context.WithoutCancel(ctx))
	if err != nil {
		result.SessionUnavailable = true
		logging.WarnWithContext(logger, "session unavailable", "session_unavailable",
			logging.Error(err),
			logging.String(logging.FieldPhase, string(PhaseStart)),
			logging.String(logging.FieldErrorHint, "refresh the saved session with the login helper"),
		)
		c.notify(ctx, notifications.EventSessionUnavailable, notifications.Payload{"reason": err.Error()})
		return publisher.Transient(err.Error())
	}
	result.Phases = append(result.Phases, PhaseSessionLoaded)
	logger.Debug("session loaded",
		logging.String(logging.FieldPhase, string(PhaseSessionLoaded)),
		logging.Int("cookies", len(handle.Cookies)),
	)

	req := publisher.Request{
		PayloadRef: item.PayloadRef,
		Caption:    result.Caption,
		Session:    handle,
		Timeout:    c.timeout,
	}
	logger.Info("submitting upload",
		logging.String(logging.FieldEventType, "upload_submit"),
		logging.String("payload", filepath.Base(item.PayloadRef)),
		logging.Bool("default_caption", c.captions.UsesDefault(item.Caption)),
		logging.Int("hashtags", len(caption.Hashtags(result.Caption))),
		logging.Int("attempt", item.AttemptCount+1),
		logging.Duration("timeout", c.timeout),
	)

	stopHeartbeat := startHeartbeat(context.WithoutCancel(ctx), c.store, logger, item.ID, c.heartbeat)
	defer stopHeartbeat()
	submitted, timedOut := c.submit(ctx, logger, req)

	result.TimedOut = timedOut
	result.Phases = append(result.Phases, PhaseSubmitted)
	return submitted
}

func (c *Coordinator) loadSession(ctx context.Context) (session.Handle, error) {
	if c.sessions == nil {
		return session.Handle{}, services.Wrap(services.ErrSessionUnavailable, "upload", "load session", "no session loader configured", nil)
	}
	handle, err := c.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, services.ErrSessionUnavailable) {
			err = services.Wrap(services.ErrSessionUnavailable, "upload", "load session", "", err)
		}
		return session.Handle{}, err
	}
	if !c.sessions.Verify(ctx, handle) {
		return session.Handle{}, services.Wrap(services.ErrSessionUnavailable, "upload", "verify session", "session failed verification", nil)
	}
	return handle, nil
}

type submission struct {
	outcome publisher.Outcome
}

// submit calls the adapter under the wall-clock timeout. The attempt is not
// tied to ctx cancellation: shutdown waits for it, bounded by the timeout and
// the abort grace.
func (c *Coordinator) submit(ctx context.Context, logger *slog.Logger, req publisher.Request) (publisher.Outcome, bool) {
	if c.adapter == nil {
		return publisher.Permanent("no publisher adapter configured"), false
	}
	base := context.WithoutCancel(ctx)
	submitCtx, cancel := context.WithCancel(base)
	defer cancel()

	done := make(chan submission, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.ErrorWithContext(logger, "publisher panicked", "publisher_panic",
					logging.Any("panic", r),
					logging.String(logging.FieldErrorHint, "inspect the publisher adapter"),
				)
				done <- submission{outcome: publisher.Transient(fmt.Sprintf("publisher panic: %v", r))}
			}
		}()
		done <- submission{outcome: normalizeOutcome(c.adapter.Submit(submitCtx, req))}
	}()

	var timer <-chan time.Time
	if c.timeout > 0 {
		t := time.NewTimer(c.timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case sub := <-done:
		return sub.outcome, false
	case <-timer:
	}

	cancel()
	logging.WarnWithContext(logger, "upload timed out", "upload_timeout",
		logging.Duration("timeout", c.timeout),
		logging.String(logging.FieldPhase, string(PhaseSubmitted)),
	)
	if c.grace > 0 {
		graceTimer := time.NewTimer(c.grace)
		defer graceTimer.Stop()
		select {
		case <-done:
		case <-graceTimer.C:
			logging.WarnWithContext(logger, "publisher did not stop within abort grace", "publisher_abort_slow",
				logging.Duration("abort_grace", c.grace),
				logging.String(logging.FieldImpact, "the abandoned attempt may still hold the session"),
			)
		}
	}
	return publisher.Transient(publisher.ReasonTimeout), true
}

func normalizeOutcome(out publisher.Outcome) publisher.Outcome {
	switch out.Kind {
	case publisher.KindSuccess, publisher.KindTransient, publisher.KindPermanent:
		return out
	default:
		reason := strings.TrimSpace(out.Reason)
		if reason == "" {
			reason = fmt.Sprintf("unknown outcome %q", out.Kind)
		}
		return publisher.Transient(reason)
	}
}

// record writes the outcome. Writes ignore caller cancellation so a shutdown
// does not lose the result of a finished attempt.
func (c *Coordinator) record(ctx context.Context, logger *slog.Logger, item *queue.Item, result Result) (Result, error) {
	writeCtx := context.WithoutCancel(ctx)
	outcome := result.Outcome
	reason := outcome.Reason
	if reason == "" && !outcome.Succeeded() {
		reason = string(outcome.Kind)
	}

	var (
		updated *queue.Item
		err     error
	)
	switch outcome.Kind {
	case publisher.KindSuccess:
		err = c.store.MarkPosted(writeCtx, item.ID)
	case publisher.KindPermanent:
		err = c.store.MarkFailed(writeCtx, item.ID, reason)
	default:
		updated, err = c.store.MarkRetry(writeCtx, item.ID, reason)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record upload outcome", "outcome_write_failed",
			logging.String("outcome", string(outcome.Kind)),
			logging.String("reason", reason),
			logging.Error(err),
			logging.Alert("store_write_failed"),
			logging.String(logging.FieldErrorHint, "item stays in progress until stale recovery requeues it"),
		)
		c.notify(ctx, notifications.EventError, notifications.Payload{
			"context": fmt.Sprintf("recording outcome for item #%d", item.ID),
			"error":   err,
		})
		result.Status = queue.StatusInProgress
		result.Attempts = item.AttemptCount
		return result, err
	}

	if updated == nil {
		updated, _ = c.store.GetByID(writeCtx, item.ID)
	}
	if updated != nil {
		result.Status = updated.Status
		result.Attempts = updated.AttemptCount
	}
	result.Phases = append(result.Phases, PhaseDone)
	c.metrics.ObserveUpload(string(outcome.Kind), result.Duration)
	c.announce(ctx, logger, item, result, reason)
	return result, nil
}

func (c *Coordinator) announce(ctx context.Context, logger *slog.Logger, item *queue.Item, result Result, reason string) {
	payload := notifications.Payload{
		"itemID":   item.ID,
		"payload":  filepath.Base(item.PayloadRef),
		"attempts": result.Attempts,
		"reason":   reason,
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldPhase, string(PhaseDone)),
		logging.String("outcome", string(result.Outcome.Kind)),
		logging.String("status", string(result.Status)),
		logging.Int("attempt_count", result.Attempts),
		logging.Duration("duration", result.Duration),
	}

	switch {
	case result.Outcome.Succeeded():
		logger.Info("item posted", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "item_posted"))...)...)
		c.notify(ctx, notifications.EventItemPosted, payload)
	case result.Status == queue.StatusPending:
		payload["maxAttempts"] = c.maxRetry + 1
		logging.WarnWithContext(logger, "upload failed, retry scheduled", "retry_scheduled", append(attrs,
			logging.String("reason", reason),
			logging.Error(result.Outcome.Err()))...)
		c.notify(ctx, notifications.EventRetryScheduled, payload)
	default:
		logging.ErrorWithContext(logger, "upload failed", "item_failed", append(attrs,
			logging.String("reason", reason),
			logging.Error(result.Outcome.Err()),
			logging.String(logging.FieldErrorHint, "inspect the item and run queue reset-failed to try again"))...)
		c.notify(ctx, notifications.EventItemFailed, payload)
	}
}

func (c *Coordinator) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		c.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}
