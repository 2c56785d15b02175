package logging

// Standardized attribute keys shared across components.
const (
	FieldComponent = "component"
	FieldEpisode   = "episode"
	FieldAsset     = "asset"
	FieldIteration = "iteration"
	FieldVerdict   = "verdict"
	FieldOutcome   = "outcome"
	FieldJobID     = "job_id"
	FieldWorker    = "worker"
)
