package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"postline/internal/config"
	"postline/internal/daemon"
	"postline/internal/ipc"
	"postline/internal/logging"
	"postline/internal/metrics"
	"postline/internal/notifications"
	"postline/internal/preflight"
	"postline/internal/publisher"
	"postline/internal/queue"
	"postline/internal/schedule"
	"postline/internal/session"
	"postline/internal/upload"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the postline daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, logPath, err := logging.NewDaemonLogger(cfg, time.Now())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update postline.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: logging.RunLogPattern, Exclude: []string{logPath}},
	)
	logPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	d, err := Build(cfg, store, logger, logPath)
	if err != nil {
		return err
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration, lock file, and queue database access"),
			logging.String(logging.FieldImpact, "scheduled uploads will not run"),
		)
	}

	<-signalCtx.Done()
	logger.Info("postline daemon shutting down")
	return nil
}

// Build wires the upload pipeline around an open store and returns an
// unstarted daemon.
func Build(cfg *config.Config, store *queue.Store, logger *slog.Logger, logPath string) (*daemon.Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	recorder := metrics.New()
	notifier := notifications.NewService(cfg)
	loader := session.NewFileLoader(cfg)
	adapter := publisher.NewCommandAdapter(cfg,
		publisher.WithLogger(logging.NewComponentLogger(logger, "publisher")),
	)

	coordinator := upload.NewCoordinator(cfg, store, loader, adapter,
		upload.WithNotifier(notifier),
		upload.WithMetrics(recorder),
		upload.WithLogger(logger),
	)
	scheduler, err := schedule.New(cfg, store, coordinator,
		schedule.WithLogger(logger),
		schedule.WithNotifier(notifier),
		schedule.WithMetrics(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	d, err := daemon.New(cfg, store, scheduler, logger,
		daemon.WithLogPath(logPath),
		daemon.WithNotifier(notifier),
		daemon.WithMetrics(recorder),
		daemon.WithHealthCheckers(loader, adapter),
	)
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	results := preflight.RunAll(checkCtx, cfg)
	for _, failed := range preflight.Failed(results) {
		logger.Warn("preflight check failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "run `postline status` for details"),
		)
	}
	logger.Info("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
		logging.String(logging.FieldEventType, "preflight_complete"),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "postline.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
