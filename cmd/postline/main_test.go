package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postline/internal/api"
	"postline/internal/queue"
	"postline/internal/testsupport"
)

func TestRunNowPostsHeadItem(t *testing.T) {
	env := setupCLITestEnv(t)
	first := testsupport.Enqueue(t, env.store, env.cfg, "first.mp4", "first")
	second := testsupport.Enqueue(t, env.store, env.cfg, "second.mp4", "second")

	out, _, err := runCLI(t, []string{"run-now"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run-now: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Posted first.mp4 (item %d)", first.ID))

	if got := testsupport.MustGet(t, env.store, first.ID); got.Status != queue.StatusPosted {
		t.Fatalf("expected first posted, got %s", got.Status)
	}
	if got := testsupport.MustGet(t, env.store, second.ID); got.Status != queue.StatusPending {
		t.Fatalf("expected second pending, got %s", got.Status)
	}

	out, _, err = runCLI(t, []string{"run-now", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run-now json: %v", err)
	}
	var resp api.RunNowResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode run-now: %v (%s)", err, out)
	}
	if resp.Firing.ItemID != second.ID || resp.Firing.Trigger != "manual" {
		t.Fatalf("unexpected firing: %#v", resp.Firing)
	}

	out, _, err = runCLI(t, []string{"run-now"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run-now on empty queue: %v", err)
	}
	requireContains(t, out, "nothing posted")
}

func TestScheduleListsPostingTimes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"schedule"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	requireContains(t, out, "Timezone: UTC")
	requireContains(t, out, "09:00")
	requireContains(t, out, "18:30")
}

func TestStatusReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Enqueue(t, env.store, env.cfg, "a.mp4", "")

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, fragment := range []string{"System Status", "Postline:", "Running", "Session:", "Queue Status", "Pending"} {
		requireContains(t, out, fragment)
	}

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.QueueStats["pending"] != 1 {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestStatusOffline(t *testing.T) {
	_, configPath, socketPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"status"}, socketPath, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "Queue is empty")
}

func TestStopWithoutDaemon(t *testing.T) {
	_, configPath, socketPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"stop"}, socketPath, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestLogsReadsRunLogWhenDaemonIsDown(t *testing.T) {
	cfg, configPath, socketPath := setupCLIConfig(t)
	logPath := filepath.Join(cfg.Paths.LogDir, "postline.log")
	lines := []string{
		`{"ts":"2026-01-01T09:00:00Z","level":"info","msg":"firing started"}`,
		`{"ts":"2026-01-01T09:00:01Z","level":"info","msg":"upload submitted","item_id":3}`,
		`{"ts":"2026-01-01T09:00:02Z","level":"warn","msg":"upload retry","item_id":3}`,
		`{"ts":"2026-01-01T09:00:03Z","level":"info","msg":"upload submitted","item_id":4}`,
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--item", "3"}, socketPath, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 2 lines for item 3, got %d: %q", got, out)
	}

	out, _, err = runCLI(t, []string{"logs", "--level", "warn"}, socketPath, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "upload retry")
	if strings.Contains(out, "firing started") {
		t.Fatalf("expected info lines filtered, got %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, socketPath, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, `"item_id":4`)
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}
