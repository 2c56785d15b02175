package workflow

import (
	"context"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
)

// ResolveSeed picks the candidate a fresh loop should start from: the one
// with the greatest (created_at, id) key among previously persisted drafts.
// Returns nil when no candidates exist.
func ResolveSeed(candidates []domain.Candidate) *domain.Candidate {
	var best *domain.Candidate
	for i := range candidates {
		if best == nil || candidates[i].SortKey() > best.SortKey() {
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil
	}
	seed := *best
	return &seed
}

// SeededCreator rewrites the first creator call whose previous candidate is
// empty so the loop starts from the best existing draft instead of nothing.
// The seed is delivered at most once per orchestrator invocation.
type SeededCreator struct {
	seed      *domain.Candidate
	next      loop.Creator
	delivered bool
}

// NewSeededCreator wraps next with a one-shot seed. A nil seed leaves the
// creator untouched.
func NewSeededCreator(seed *domain.Candidate, next loop.Creator) *SeededCreator {
	return &SeededCreator{seed: seed, next: next}
}

// Create implements loop.Creator.
func (s *SeededCreator) Create(ctx context.Context, input loop.CreatorInput) (loop.CreatorOutput, error) {
	if !s.delivered && s.seed != nil && input.PreviousCandidate == nil {
		input.PreviousCandidate = s.seed
		s.delivered = true
	}
	return s.next.Create(ctx, input)
}
