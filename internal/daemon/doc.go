// Package daemon coordinates the long-running Postline process.
//
// It wires configuration, queue storage, and the scheduler into a single
// lifecycle with flock-based locking to prevent multiple instances. The daemon
// exposes queue maintenance helpers used by IPC and HTTP callers, validates
// manual intake, reports component and dependency health, serves the HTTP API
// with Prometheus metrics, and prunes posted items on a timer.
//
// Keep orchestration logic here: publish attempts live in the upload package
// and firing order in the schedule package, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
