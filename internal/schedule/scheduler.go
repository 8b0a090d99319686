package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"postline/internal/config"
	"postline/internal/logging"
	"postline/internal/metrics"
	"postline/internal/notifications"
)

const requestBuffer = 16

type request struct {
	trigger Trigger
	reply   chan FiringReport
}

type timeSpec struct {
	label    string
	spec     string
	schedule cron.Schedule
}

// Scheduler serializes firings onto a single loop goroutine.
type Scheduler struct {
	store            Store
	runner           Runner
	notifier         notifications.Service
	metrics          *metrics.Recorder
	logger           *slog.Logger
	location         *time.Location
	specs            []timeSpec
	heartbeatTimeout time.Duration
	statsInterval    time.Duration
	now              func() time.Time

	requests     chan request
	timerWaiting atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	busy    bool
	firings int64
	last    *FiringReport
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n notifications.Service) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = r }
}

// WithClock overrides the wall clock used for stale cutoffs and entries.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a scheduler for the configured times of day.
func New(cfg *config.Config, store Store, runner Runner, opts ...Option) (*Scheduler, error) {
	if store == nil || runner == nil {
		return nil, errors.New("scheduler requires a store and a runner")
	}
	s := &Scheduler{
		store:            store,
		runner:           runner,
		notifier:         notifications.NewService(nil),
		logger:           logging.NewNop(),
		location:         cfg.Location(),
		heartbeatTimeout: cfg.HeartbeatTimeout(),
		statsInterval:    cfg.StatsInterval(),
		now:              time.Now,
		requests:         make(chan request, requestBuffer),
	}
	for _, tod := range cfg.TimesOfDay() {
		spec := fmt.Sprintf("%d %d * * *", tod.Minute, tod.Hour)
		parsed, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %s: %w", tod, err)
		}
		s.specs = append(s.specs, timeSpec{label: tod.String(), spec: spec, schedule: parsed})
	}
	if len(s.specs) == 0 {
		return nil, errors.New("schedule has no posting times")
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "scheduler")
	return s, nil
}

// Start recovers interrupted items, registers the cron entries, and starts
// the loop. It returns an error if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.mu.Unlock()

	if _, err := s.RecoverInterrupted(ctx); err != nil {
		return err
	}

	runner := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger{logger: s.logger}),
	)
	for _, spec := range s.specs {
		if _, err := runner.AddFunc(spec.spec, s.fireTimer); err != nil {
			return fmt.Errorf("register schedule %s: %w", spec.label, err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.cron = runner
	s.running = true
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.loop(loopCtx)
	}()
	if s.statsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.statsLoop(loopCtx)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	runner.Start()
	s.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_start"),
		logging.String("timezone", s.location.String()),
		logging.Any("times", s.timeLabels()),
		logging.Time("next_firing", s.nextFiring()),
	)
	return nil
}

// Stop halts the cron entries and waits for an in-flight firing to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	runner := s.cron
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if runner != nil {
		<-runner.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stop"))
}

// RunNow requests an immediate firing and waits for its report.
func (s *Scheduler) RunNow(ctx context.Context) (FiringReport, error) {
	s.mu.Lock()
	running := s.running
	done := s.done
	s.mu.Unlock()
	if !running {
		return FiringReport{}, ErrNotRunning
	}

	req := request{trigger: TriggerManual, reply: make(chan FiringReport, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return FiringReport{}, ctx.Err()
	case <-done:
		return FiringReport{}, ErrNotRunning
	}
	select {
	case report := <-req.reply:
		return report, nil
	case <-ctx.Done():
		return FiringReport{}, ctx.Err()
	case <-done:
		return FiringReport{}, ErrNotRunning
	}
}

// fireTimer is the cron callback. A timer request already waiting absorbs
// this one.
func (s *Scheduler) fireTimer() {
	if !s.timerWaiting.CompareAndSwap(false, true) {
		s.logger.Info("timer firing coalesced",
			logging.String(logging.FieldEventType, "firing_coalesced"),
			logging.String(logging.FieldTrigger, string(TriggerTimer)),
		)
		return
	}
	select {
	case s.requests <- request{trigger: TriggerTimer}:
	default:
		s.timerWaiting.Store(false)
		logging.WarnWithContext(s.logger, "scheduler request queue full; timer firing dropped", "firing_dropped",
			logging.String(logging.FieldImpact, "the next scheduled time will pick up the item"),
		)
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case req := <-s.requests:
			if req.trigger == TriggerTimer {
				s.timerWaiting.Store(false)
			}
			report := s.fire(ctx, req.trigger)
			if req.reply != nil {
				req.reply <- report
			}
		}
	}
}

// drain answers manual requests queued behind a shutdown.
func (s *Scheduler) drain() {
	for {
		select {
		case req := <-s.requests:
			if req.reply != nil {
				req.reply <- FiringReport{Trigger: req.trigger, Error: ErrNotRunning.Error(), Result: ResultError}
			}
		default:
			return
		}
	}
}

// Entries lists the configured times with their next occurrence, soonest first.
func (s *Scheduler) Entries() []Entry {
	now := s.now().In(s.location)
	entries := make([]Entry, 0, len(s.specs))
	for _, spec := range s.specs {
		entries = append(entries, Entry{
			Time: spec.label,
			Spec: spec.spec,
			Next: spec.schedule.Next(now),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Next.Before(entries[j].Next)
	})
	return entries
}

// Status reports the loop state and the most recent firing.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:      s.running,
		Busy:         s.busy,
		TimerWaiting: s.timerWaiting.Load(),
		Timezone:     s.location.String(),
		Times:        s.timeLabels(),
		NextFiring:   s.nextFiring(),
		Firings:      s.firings,
	}
	if s.last != nil {
		last := *s.last
		status.LastFiring = &last
	}
	return status
}

func (s *Scheduler) timeLabels() []string {
	labels := make([]string, 0, len(s.specs))
	for _, spec := range s.specs {
		labels = append(labels, spec.label)
	}
	return labels
}

func (s *Scheduler) nextFiring() time.Time {
	entries := s.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

func (s *Scheduler) recordReport(report FiringReport) {
	s.mu.Lock()
	s.firings++
	s.last = &report
	s.mu.Unlock()
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{logging.Error(err)}, keysAndValues...)...)
}
