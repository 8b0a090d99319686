package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postline/internal/api"
	"postline/internal/config"
	"postline/internal/deps"
	"postline/internal/ipc"
	"postline/internal/preflight"
	"postline/internal/queue"
)

// StatusLine is one rendered readiness row.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// Snapshot is the CLI view of daemon state with offline fallbacks applied.
type Snapshot struct {
	Status            api.DaemonStatus
	Reachable         bool
	SystemChecks      []StatusLine
	PathChecks        []StatusLine
	DependencySummary DependencySummary
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks for queue stats and dependencies.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snapshot := &Snapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot.Status = *resp
			snapshot.Reachable = true
		}
	}

	if !snapshot.Reachable {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if store, openErr := queue.Open(cfg); openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			_ = store.Close()
			if statsErr == nil {
				snapshot.Status.QueueStats = api.MergeQueueStats(stats)
			}
		}
	}
	if snapshot.Status.QueueStats == nil {
		snapshot.Status.QueueStats = api.MergeQueueStats(nil)
	}
	if len(snapshot.Status.Dependencies) == 0 {
		snapshot.Status.Dependencies = ResolveDependencies(cfg)
	}

	snapshot.SystemChecks = BuildSystemChecks(cfg, snapshot.Status)
	snapshot.PathChecks = BuildPathChecks(cfg)
	snapshot.DependencySummary = BuildDependencySummary(snapshot.Status.Dependencies)
	return snapshot, nil
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	checks := deps.CheckBinaries(deps.Requirements(cfg))
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, status api.DaemonStatus) []StatusLine {
	lines := make([]StatusLine, 0, 5)
	if status.Running {
		lines = append(lines, StatusLine{Label: "Postline", Severity: "ok", Detail: "Running"})
		sched := status.Scheduler
		switch {
		case sched.Busy:
			lines = append(lines, StatusLine{Label: "Scheduler", Severity: "ok", Detail: "Uploading"})
		case sched.NextFiring != "":
			lines = append(lines, StatusLine{Label: "Scheduler", Severity: "ok", Detail: "Next firing " + sched.NextFiring})
		default:
			lines = append(lines, StatusLine{Label: "Scheduler", Severity: "warn", Detail: "Idle"})
		}
		if last := sched.LastFiring; last != nil && last.Result == "error" {
			lines = append(lines, StatusLine{Label: "Last Firing", Severity: "error", Detail: last.Error})
		}
	} else {
		lines = append(lines, StatusLine{Label: "Postline", Severity: "warn", Detail: "Not running (run `postline start`)"})
	}

	sess := preflight.CheckSessionFromConfig(cfg)
	if sess.Passed {
		lines = append(lines, StatusLine{Label: "Session", Severity: "ok", Detail: sess.Detail})
	} else {
		lines = append(lines, StatusLine{Label: "Session", Severity: "error", Detail: sess.Detail})
	}

	ntfy := preflight.CheckNotificationsFromConfig(cfg)
	switch {
	case ntfy.Passed && ntfy.Detail == "Not configured":
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "warn", Detail: ntfy.Detail})
	case ntfy.Passed:
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: ntfy.Detail})
	default:
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "warn", Detail: ntfy.Detail})
	}
	return lines
}

// BuildPathChecks resolves configured directory readiness.
func BuildPathChecks(cfg *config.Config) []StatusLine {
	lines := make([]StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Data", path: cfg.Paths.DataDir},
		{label: "Media", path: cfg.Paths.MediaDir},
		{label: "Logs", path: cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{Label: dir.label, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) DependencySummary {
	if len(deps) == 0 {
		return DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
