// Package agents supplies Creator and Reviewer implementations for the
// drafting loop.
//
// Three families exist: scripted agents replay canned JSON replies and are
// used by tests and demos, command agents shell out to an external executable
// speaking JSON over stdin/stdout, and LLM agents call a chat-completion
// endpoint. All three decode replies through the same payload helpers so
// missing identifiers and timestamps are defaulted uniformly before the loop
// validates the result.
package agents
