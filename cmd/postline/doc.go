// Command postline is the operator CLI for the postline upload daemon.
//
// It starts and stops the daemon, inspects and edits the upload queue,
// triggers manual firings, and tails the daemon log. Queue commands talk to
// the daemon over its Unix socket and fall back to opening the queue
// database directly when the daemon is not running.
package main
