// Package loop implements the deterministic Creator/Reviewer review cycle
// for one content asset.
//
// Advance is the whole public surface: given the persisted protocol state and
// the two agent capabilities, it drives iterations until a terminal decision,
// the iteration cap, or an agent contract failure. The engine performs no I/O
// itself; every artifact it wants persisted comes back as a ProtocolWrite the
// caller commits. That split keeps the decision logic pure and unit-testable
// with in-memory fakes.
//
// Terminal decisions lock their fields. Re-running Advance on a finished
// asset returns the state untouched with zero writes and never invokes an
// agent, which is what makes resumption safe.
package loop
