package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"postline/internal/config"
	"postline/internal/daemon"
	"postline/internal/daemonrun"
	"postline/internal/ipc"
	"postline/internal/logging"
	"postline/internal/queue"
	"postline/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

// setupCLIConfig writes a config file for a temp workspace and points HOME
// at the workspace so no user configuration leaks into the test.
func setupCLIConfig(t *testing.T) (*config.Config, string, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithSchedule("09:00", "18:30"),
		testsupport.WithSession(),
		testsupport.WithStubbedBinaries(),
	)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "pl-cli")
	if err != nil {
		t.Fatalf("socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	return cfg, configPath, filepath.Join(sockDir, "postline.sock")
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg, configPath, socketPath := setupCLIConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	d, err := daemonrun.Build(cfg, store, logger, "")
	if err != nil {
		t.Fatalf("daemonrun.Build: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func claimAndFail(t *testing.T, store *queue.Store, id int64, reason string) {
	t.Helper()
	ctx := context.Background()
	claimed, err := store.TryClaim(ctx, id)
	if err != nil || !claimed {
		t.Fatalf("TryClaim(%d): claimed=%v err=%v", id, claimed, err)
	}
	if err := store.MarkFailed(ctx, id, reason); err != nil {
		t.Fatalf("MarkFailed(%d): %v", id, err)
	}
}
