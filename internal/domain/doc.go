// Package domain defines the shared data model for episode marketing copy:
// candidates, review iterations, assets, and the episode workspace document.
//
// Types here are plain values with explicit Validate methods; they carry no
// storage or transport concerns. The invariants they enforce (ok verdicts
// carry no error-severity issues, review iterations increase strictly,
// candidate ids are unique within an asset) are relied on by the review loop
// engine and the workspace store, so violations are treated as contract
// errors rather than recoverable data problems.
package domain
