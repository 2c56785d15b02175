// Package queue persists drafting jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A job tracks one asset's drafting loop inside one episode workspace. The
// Store manages the database connection, schema initialization, claim/release
// transitions, heartbeat tracking, and stale-job recovery so several workers
// can share one queue without double-claiming work.
//
// The database is transient coordination state; the workspace directories on
// disk remain the source of truth for drafted copy. Schema changes bump the
// version in schema.go and require clearing the database.
package queue
