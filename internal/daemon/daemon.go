package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"postline/internal/config"
	"postline/internal/deps"
	"postline/internal/health"
	"postline/internal/intake"
	"postline/internal/logging"
	"postline/internal/metrics"
	"postline/internal/notifications"
	"postline/internal/queue"
	"postline/internal/schedule"
)

// Daemon coordinates the scheduler and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	scheduler *schedule.Scheduler
	notifier  notifications.Service
	metrics   *metrics.Recorder
	checkers  []health.Checker
	logPath   string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	LogPath      string
	QueueStats   map[queue.Status]int
	Scheduler    schedule.Status
	Health       []health.Health
	Dependencies []deps.Status
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithNotifier sets the notification sink used for intake and test events.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithMetrics sets the recorder exposed on /metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Daemon) { d.metrics = r }
}

// WithHealthCheckers registers collaborators reported in Status.
func WithHealthCheckers(checkers ...health.Checker) Option {
	return func(d *Daemon) { d.checkers = append(d.checkers, checkers...) }
}

// WithLogPath records the current run log for status output.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, scheduler *schedule.Scheduler, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, store, and scheduler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		scheduler: scheduler,
		notifier:  notifications.NewService(nil),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, starts the scheduler, and serves the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another postline daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := d.scheduler.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.scheduler.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startMaintenance(runCtx)

	d.running.Store(true)
	d.logger.Info("postline daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop waits for the in-flight firing, stops background work, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.scheduler.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.bg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldImpact, "next start may report another instance running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("postline daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon. The store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether the scheduler is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Store exposes the queue store backing the daemon.
func (d *Daemon) Store() *queue.Store {
	return d.store
}

// LogPath returns the path to the daemon run log.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single item or nil when it does not exist.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// Enqueue validates a media file and adds it to the queue.
func (d *Daemon) Enqueue(ctx context.Context, path, caption, source string, importFile bool) (*queue.Item, error) {
	payload, err := intake.Prepare(d.cfg, path, importFile)
	if err != nil {
		return nil, err
	}
	item, err := d.store.EnqueueFrom(ctx, payload, caption, source)
	if err != nil {
		return nil, fmt.Errorf("enqueue media: %w", err)
	}
	d.logger.Info("media queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("payload", payload),
		logging.String("source", source),
		logging.String(logging.FieldEventType, "item_queued"),
	)
	if err := d.notifier.Publish(ctx, notifications.EventItemQueued, notifications.Payload{
		"itemID":  item.ID,
		"payload": filepath.Base(payload),
	}); err != nil {
		d.logger.Warn("queued notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
	return item, nil
}

// ResetFailed returns a failed item to pending with a fresh retry budget.
func (d *Daemon) ResetFailed(ctx context.Context, id int64) (bool, error) {
	return d.store.ResetFailed(ctx, id)
}

// ResetAllFailed returns every failed item to pending.
func (d *Daemon) ResetAllFailed(ctx context.Context) (int64, error) {
	return d.store.ResetAllFailed(ctx)
}

// Remove deletes an item unless it is in progress.
func (d *Daemon) Remove(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// RunNow triggers an immediate firing and waits for its report.
func (d *Daemon) RunNow(ctx context.Context) (schedule.FiringReport, error) {
	return d.scheduler.RunNow(ctx)
}

// Schedule returns the configured posting times with their next occurrence.
func (d *Daemon) Schedule() []schedule.Entry {
	return d.scheduler.Entries()
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
		)
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		QueueStats:   stats,
		Scheduler:    d.scheduler.Status(),
		Health:       health.Collect(ctx, d.checkers...),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}
