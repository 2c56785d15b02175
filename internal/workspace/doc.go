// Package workspace owns the on-disk layout of an episode workspace and the
// atomic persistence of its artifacts: candidates, reviews, selected text,
// protocol documents, and the aggregate state.json.
//
// Layout is pure path computation and satisfies the loop engine's Paths
// contract with workspace-relative keys; Store joins those keys onto the
// root and performs the actual I/O. Every write goes through a temp file and
// rename so a document is always either fully the old version or fully the
// new one.
package workspace
