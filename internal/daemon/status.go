package daemon

import "postline/internal/api"

// APIStatus converts a daemon status snapshot into its transport form.
func APIStatus(status Status) api.DaemonStatus {
	deps := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		deps = append(deps, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		LogPath:      status.LogPath,
		QueueStats:   api.MergeQueueStats(status.QueueStats),
		Scheduler:    api.FromSchedulerStatus(status.Scheduler),
		Health:       api.FromHealth(status.Health),
		Dependencies: deps,
	}
}
