// Package metrics exposes Prometheus collectors for uploads, scheduler
// firings, and queue depth. The daemon serves them on /metrics.
package metrics
