// Package services defines shared utilities consumed by the upload pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, firing identifiers, triggers,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so storage, session, and
//     publish failures can be classified with errors.Is anywhere downstream.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
