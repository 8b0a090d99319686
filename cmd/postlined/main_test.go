package main

import (
	"os"
	"path/filepath"
	"testing"

	"postline/internal/config"
)

func TestSocketPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")

	if got := socketPath(&cfg, ""); got != cfg.SocketPath() {
		t.Fatalf("expected config socket %q, got %q", cfg.SocketPath(), got)
	}
	if got := socketPath(&cfg, " /tmp/custom.sock "); got != "/tmp/custom.sock" {
		t.Fatalf("expected override, got %q", got)
	}
	if got := socketPath(nil, ""); got != "postline.sock" {
		t.Fatalf("expected bare default, got %q", got)
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	path := filepath.Join(base, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[schedule\ntimes = 3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
