// Package workflow is the imperative shell around the drafting loop engine.
//
// The Runner drives one asset's loop inside one episode workspace: it
// resolves a seed candidate from prior drafts, layers the locked-selection
// policy over the reviewer, executes the engine, commits every write-intent,
// and upserts the aggregate workspace state. The Manager layers a worker pool
// on top, claiming queued drafting jobs and running them concurrently with
// heartbeat tracking and stale-claim recovery.
//
// The engine stays pure; every side effect lives here.
package workflow
