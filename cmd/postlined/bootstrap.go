package main

import (
	"fmt"
	"strings"

	"postline/internal/config"
)

type bootstrapOptions struct {
	ConfigPath string
	SocketPath string
	LogLevel   string
}

func loadConfig(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return cfg, nil
}

func socketPath(cfg *config.Config, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if cfg == nil {
		return "postline.sock"
	}
	return cfg.SocketPath()
}
