// Package ffprobe inspects media files with ffprobe.
//
// Inspect runs the binary and decodes its JSON report into a Result. Intake
// uses the stream and duration helpers to reject clips that cannot be posted
// before they reach the queue.
package ffprobe
