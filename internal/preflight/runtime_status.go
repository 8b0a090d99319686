package preflight

import (
	"context"
	"strings"
	"time"

	"postline/internal/config"
)

// CheckNotificationsFromConfig reports ntfy readiness for status output.
// An unconfigured topic passes with a "Not configured" detail.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: "ntfy", Passed: true, Detail: "Not configured"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
}

// CheckSessionFromConfig reports session jar readiness for status output.
func CheckSessionFromConfig(cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "Session", Detail: "Unknown"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return CheckSession(ctx, cfg)
}
