package publisher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"postline/internal/config"
	"postline/internal/health"
	"postline/internal/logging"
)

var commandContext = exec.CommandContext

const (
	defaultKillDelay = 10 * time.Second
	stderrTailLimit  = 4096
)

// Step is a progress event reported by the automation command.
type Step struct {
	Name    string
	Message string
}

// CommandOption configures a CommandAdapter.
type CommandOption func(*CommandAdapter)

// WithLogger sets the logger used for step events.
func WithLogger(logger *slog.Logger) CommandOption {
	return func(c *CommandAdapter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStepObserver registers a callback invoked for every step event.
func WithStepObserver(fn func(Step)) CommandOption {
	return func(c *CommandAdapter) {
		c.onStep = fn
	}
}

// WithKillDelay bounds how long the command may run after an interrupt
// before it is killed.
func WithKillDelay(d time.Duration) CommandOption {
	return func(c *CommandAdapter) {
		if d > 0 {
			c.killDelay = d
		}
	}
}

// CommandAdapter runs an external automation command for each publish.
//
// The command receives --file, --caption, --cookies, and --timeout flags, may
// print {"step": "...", "message": "..."} lines while it works, and should end
// with a {"result": "success|transient|permanent", "reason": "..."} line.
type CommandAdapter struct {
	binary         string
	args           []string
	headless       bool
	permanentCodes map[int]struct{}
	killDelay      time.Duration
	logger         *slog.Logger
	onStep         func(Step)
}

// NewCommandAdapter builds an adapter from the [publisher] config section.
func NewCommandAdapter(cfg *config.Config, opts ...CommandOption) *CommandAdapter {
	adapter := &CommandAdapter{
		binary:         strings.TrimSpace(cfg.Publisher.Command),
		args:           append([]string(nil), cfg.Publisher.Args...),
		headless:       cfg.Publisher.Headless,
		permanentCodes: make(map[int]struct{}, len(cfg.Publisher.PermanentExitCodes)),
		killDelay:      defaultKillDelay,
		logger:         logging.NewNop(),
	}
	for _, code := range cfg.Publisher.PermanentExitCodes {
		adapter.permanentCodes[code] = struct{}{}
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Binary returns the configured command name.
func (c *CommandAdapter) Binary() string {
	return c.binary
}

type commandEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Result  string `json:"result"`
	Reason  string `json:"reason"`
}

// Submit runs the command and maps its result into an Outcome.
func (c *CommandAdapter) Submit(ctx context.Context, req Request) Outcome {
	if c.binary == "" {
		return Permanent("publisher command is not configured")
	}
	if err := ctx.Err(); err != nil {
		return OutcomeFromError(err)
	}

	cookiesPath, cleanup, err := c.cookiesFile(req)
	if err != nil {
		return Transient(fmt.Sprintf("prepare session: %v", err))
	}
	defer cleanup()

	cmd := commandContext(ctx, c.binary, c.buildArgs(req, cookiesPath)...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = c.killDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Transient(fmt.Sprintf("stdout pipe: %v", err))
	}
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Transient(fmt.Sprintf("start %s: %v", c.binary, err))
	}

	var final *commandEvent
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event commandEvent
		if err := json.Unmarshal(line, &event); err != nil {
			c.logger.Debug("publisher output", logging.String("line", string(line)))
			continue
		}
		if event.Result != "" {
			captured := event
			final = &captured
			continue
		}
		if event.Step != "" {
			c.reportStep(Step{Name: event.Step, Message: event.Message})
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OutcomeFromError(ctxErr)
	}
	if final != nil {
		if kind, ok := ParseKind(final.Result); ok {
			return Outcome{Kind: kind, Reason: strings.TrimSpace(final.Reason)}
		}
		c.logger.Warn("publisher reported unknown result",
			logging.String("result", final.Result),
			logging.String(logging.FieldEventType, "publisher_unknown_result"),
		)
	}
	if waitErr == nil {
		if scanErr != nil {
			return Transient(fmt.Sprintf("read publisher output: %v", scanErr))
		}
		return Success()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		reason := fmt.Sprintf("%s exited with code %d", c.binary, code)
		if tail := stderr.Tail(); tail != "" {
			reason = fmt.Sprintf("%s: %s", reason, tail)
		}
		if _, ok := c.permanentCodes[code]; ok {
			return Permanent(reason)
		}
		return Transient(reason)
	}
	return Transient(fmt.Sprintf("wait %s: %v", c.binary, waitErr))
}

func (c *CommandAdapter) buildArgs(req Request, cookiesPath string) []string {
	args := append([]string(nil), c.args...)
	args = append(args,
		"--file", req.PayloadRef,
		"--caption", req.Caption,
		"--cookies", cookiesPath,
	)
	if req.Timeout > 0 {
		args = append(args, "--timeout", strconv.Itoa(int(req.Timeout.Round(time.Second)/time.Second)))
	}
	if c.headless {
		args = append(args, "--headless")
	}
	return args
}

// cookiesFile returns a path the command can read the session from. Handles
// loaded from disk reuse their source file; in-memory handles are written to
// a private temp file.
func (c *CommandAdapter) cookiesFile(req Request) (string, func(), error) {
	noop := func() {}
	if src := strings.TrimSpace(req.Session.Source); src != "" {
		if _, err := os.Stat(src); err == nil {
			return src, noop, nil
		}
	}
	dir, err := os.MkdirTemp("", "postline-session-")
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	data, err := json.Marshal(req.Session.Cookies)
	if err != nil {
		cleanup()
		return "", noop, err
	}
	path := filepath.Join(dir, "cookies.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", noop, err
	}
	return path, cleanup, nil
}

func (c *CommandAdapter) reportStep(step Step) {
	c.logger.Info("publisher step",
		logging.String("step", step.Name),
		logging.String("detail", step.Message),
	)
	if c.onStep != nil {
		c.onStep(step)
	}
}

// HealthCheck verifies the command is resolvable on PATH.
func (c *CommandAdapter) HealthCheck(context.Context) health.Health {
	const name = "publisher"
	if c.binary == "" {
		return health.Unhealthy(name, "publisher command is not configured")
	}
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return health.Unhealthy(name, fmt.Sprintf("%s not found: %v", c.binary, err))
	}
	return health.Health{Name: name, Ready: true, Detail: path}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

// Tail returns the last non-empty line written.
func (t *tailBuffer) Tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := strings.Split(strings.TrimSpace(string(t.buf)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ Adapter = (*CommandAdapter)(nil)
var _ Adapter = Func(nil)
