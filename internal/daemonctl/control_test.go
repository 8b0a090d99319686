package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postline/internal/api"
	"postline/internal/daemonctl"
	"postline/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pid")
	if pid, err := daemonctl.ReadPID(missing); err != nil || pid != 0 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}

	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := daemonctl.ReadPID(valid); err != nil || pid != 4242 {
		t.Fatalf("valid pid file: pid=%d err=%v", pid, err)
	}

	invalid := filepath.Join(dir, "invalid.pid")
	if err := os.WriteFile(invalid, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ReadPID(invalid); err == nil {
		t.Fatal("expected error for invalid pid file")
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	dir := t.TempDir()
	if _, err := daemonctl.ForceKillProcess(filepath.Join(dir, "x.pid"), "", os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
	if _, err := daemonctl.ForceKillProcess(filepath.Join(dir, "x.pid"), "", 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg.SocketPath(), cfg, 100*time.Millisecond)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	running, pid, err := daemonctl.ProcessInfo(cfg.SocketPath())
	if err != nil || running || pid != 0 {
		t.Fatalf("ProcessInfo: running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSession())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, cfg, "a.mp4", "")
	testsupport.Enqueue(t, store, cfg, "b.mp4", "")
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Reachable || snapshot.Status.Running {
		t.Fatalf("expected offline snapshot, got %#v", snapshot.Status)
	}
	if snapshot.Status.QueueStats["pending"] != 2 {
		t.Fatalf("expected 2 pending from offline store, got %#v", snapshot.Status.QueueStats)
	}
	if len(snapshot.Status.Dependencies) == 0 {
		t.Fatal("expected dependency fallback")
	}

	labels := map[string]daemonctl.StatusLine{}
	for _, line := range snapshot.SystemChecks {
		labels[line.Label] = line
	}
	if labels["Postline"].Severity != "warn" {
		t.Fatalf("expected not-running warning, got %#v", labels["Postline"])
	}
	if labels["Session"].Severity != "ok" {
		t.Fatalf("expected valid session, got %#v", labels["Session"])
	}
	if labels["Notifications"].Detail != "Not configured" {
		t.Fatalf("expected notifications not configured, got %#v", labels["Notifications"])
	}
	if len(snapshot.PathChecks) != 3 {
		t.Fatalf("expected three path checks, got %d", len(snapshot.PathChecks))
	}
}

func TestBuildDependencySummary(t *testing.T) {
	empty := daemonctl.BuildDependencySummary(nil)
	if empty.Severity != "info" {
		t.Fatalf("empty summary severity = %q", empty.Severity)
	}

	summary := daemonctl.BuildDependencySummary([]api.DependencyStatus{
		{Name: "Publisher", Available: true},
		{Name: "Helper", Optional: true},
	})
	if summary.Severity != "warn" || summary.Available != 1 || summary.MissingOptional != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	summary = daemonctl.BuildDependencySummary([]api.DependencyStatus{{Name: "Publisher"}})
	if summary.Severity != "error" || summary.MissingRequired != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}
