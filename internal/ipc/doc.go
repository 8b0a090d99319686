// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Request and response types reuse the HTTP API DTOs where they overlap so
// both surfaces render the same shapes.
package ipc
