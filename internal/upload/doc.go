// Package upload coordinates a single publish attempt for a claimed item.
//
// The Coordinator walks the attempt through start, session_loaded, submitted,
// verified, and done. It loads and verifies the session, submits the payload
// through the publisher adapter under a wall-clock timeout while refreshing the
// item heartbeat, and records the outcome with exactly one store write:
// MarkPosted for success, MarkRetry for transient failures, and MarkFailed for
// permanent ones. Publish errors never escape as Go errors; only a failed
// outcome write does.
package upload
