package health

import "context"

// Health summarizes the readiness of a collaborator.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Checker is implemented by collaborators that can report readiness.
type Checker interface {
	HealthCheck(ctx context.Context) Health
}

// Collect runs every non-nil checker in order.
func Collect(ctx context.Context, checkers ...Checker) []Health {
	results := make([]Health, 0, len(checkers))
	for _, checker := range checkers {
		if checker == nil {
			continue
		}
		results = append(results, checker.HealthCheck(ctx))
	}
	return results
}

// AllReady reports whether every record is ready.
func AllReady(records []Health) bool {
	for _, record := range records {
		if !record.Ready {
			return false
		}
	}
	return true
}
