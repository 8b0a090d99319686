// Package queue persists upload items in SQLite and exposes the lifecycle
// operations the scheduler and operator tooling rely on.
//
// Items move pending -> in_progress -> posted, or back to pending through the
// retry path until the configured retry bound forces failed. TryClaim is the
// single-flight guard: at most one item may be in progress, enforced both by
// the claiming statement and by a partial unique index. Every mutation is a
// single atomic statement so a crash never leaves a half-applied transition.
//
// Database failures are tagged with services.ErrStorage. Schema changes bump
// schemaVersion in schema.go; users delete the database to adopt a new schema.
package queue
