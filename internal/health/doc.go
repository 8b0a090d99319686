// Package health defines the readiness records reported by the session
// loader, the publisher adapter, and the queue store.
package health
