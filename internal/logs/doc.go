// Package logs tails the daemon run log for the CLI and the IPC server.
//
// Run logs are JSON lines. Tail reads the last N lines or everything after a
// byte offset, optionally waiting for new lines, and can filter records down
// to one queue item or a minimum level. Lines that are not JSON pass through
// unfiltered.
package logs
