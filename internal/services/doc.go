// Package services holds the error taxonomy shared across pipeline
// components. Errors are tagged with sentinel markers via Wrap so callers can
// classify failures with errors.Is without parsing messages.
package services
