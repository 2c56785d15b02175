package loop

import (
	"context"

	"copydesk/internal/domain"
)

// CreatorInput is what the engine hands a Creator each iteration. On the
// first iteration of a fresh loop both previous fields are nil unless an
// orchestrator injected a seed candidate.
type CreatorInput struct {
	AssetID           string                  `json:"asset_id"`
	Iteration         int                     `json:"iteration"`
	PreviousCandidate *domain.Candidate       `json:"previous_candidate"`
	PreviousReview    *domain.ReviewIteration `json:"previous_review"`
}

// CreatorOutput carries the fresh candidate plus the agent's self-reported
// done flag. Done alone never terminates the loop; the reviewer must agree.
type CreatorOutput struct {
	Candidate domain.Candidate `json:"candidate"`
	Done      bool             `json:"done"`
}

// ReviewerInput is what the engine hands a Reviewer each iteration.
type ReviewerInput struct {
	AssetID   string           `json:"asset_id"`
	Iteration int              `json:"iteration"`
	Candidate domain.Candidate `json:"candidate"`
}

// Creator produces one candidate draft per call.
type Creator interface {
	Create(ctx context.Context, in CreatorInput) (CreatorOutput, error)
}

// Reviewer judges one candidate per call.
type Reviewer interface {
	Review(ctx context.Context, in ReviewerInput) (domain.ReviewIteration, error)
}

// CreatorFunc adapts a function to the Creator interface.
type CreatorFunc func(ctx context.Context, in CreatorInput) (CreatorOutput, error)

// Create implements Creator.
func (f CreatorFunc) Create(ctx context.Context, in CreatorInput) (CreatorOutput, error) {
	return f(ctx, in)
}

// ReviewerFunc adapts a function to the Reviewer interface.
type ReviewerFunc func(ctx context.Context, in ReviewerInput) (domain.ReviewIteration, error)

// Review implements Reviewer.
func (f ReviewerFunc) Review(ctx context.Context, in ReviewerInput) (domain.ReviewIteration, error) {
	return f(ctx, in)
}
