package loop

import (
	"context"
	"fmt"

	"copydesk/internal/domain"
	"copydesk/internal/services"
)

// AdvanceRequest parametrizes one engine run. Existing may be nil for a
// fresh loop; when supplied it must match AssetID and MaxIterations exactly.
type AdvanceRequest struct {
	Paths         Paths
	AssetID       string
	MaxIterations int
	Existing      *ProtocolState
	Creator       Creator
	Reviewer      Reviewer
}

// Advance drives the review loop from its resume point until convergence,
// iteration exhaustion, or an agent failure. It returns the new state plus
// the ordered write-intents, and never touches storage itself. No iteration
// is recorded unless both the Creator and the Reviewer succeeded for it.
func Advance(ctx context.Context, req AdvanceRequest) (*ProtocolState, []ProtocolWrite, error) {
	if req.MaxIterations < 1 {
		return nil, nil, services.Wrap(services.ErrValidation, "loop", "advance", "max iterations must be >= 1", nil)
	}
	if req.Paths == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "loop", "advance", "paths must be provided", nil)
	}
	if err := domain.ValidateAssetID(req.AssetID); err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "loop", "advance", "", err)
	}

	state := req.Existing
	if state == nil {
		state = &ProtocolState{AssetID: req.AssetID, MaxIterations: req.MaxIterations}
	}
	// Mismatched resume parameters are a caller bug, not a data problem.
	if state.AssetID != req.AssetID {
		return nil, nil, services.Wrap(services.ErrValidation, "loop", "advance",
			fmt.Sprintf("existing state is for asset %q, not %q", state.AssetID, req.AssetID), nil)
	}
	if state.MaxIterations != req.MaxIterations {
		return nil, nil, services.Wrap(services.ErrValidation, "loop", "advance",
			fmt.Sprintf("existing state allows %d iterations, caller asked for %d", state.MaxIterations, req.MaxIterations), nil)
	}

	if state.Frozen() {
		return state, nil, nil
	}

	iterations := append([]IterationRecord(nil), state.Iterations...)
	var prevCandidate *domain.Candidate
	var prevReview *domain.ReviewIteration
	if len(iterations) > 0 {
		last := iterations[len(iterations)-1]
		prevCandidate = &last.Candidate
		prevReview = &last.Review
	}

	var writes []ProtocolWrite
	var proposed *Decision

	for iteration := state.LastIteration() + 1; iteration <= req.MaxIterations; iteration++ {
		creatorOut, err := req.Creator.Create(ctx, CreatorInput{
			AssetID:           req.AssetID,
			Iteration:         iteration,
			PreviousCandidate: prevCandidate,
			PreviousReview:    prevReview,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creator iteration %d: %w", iteration, err)
		}
		if creatorOut.Candidate.AssetID != req.AssetID {
			return nil, nil, services.Wrap(services.ErrContract, "loop", "creator",
				fmt.Sprintf("candidate asset id %q does not match loop asset %q", creatorOut.Candidate.AssetID, req.AssetID), nil)
		}
		if err := creatorOut.Candidate.Validate(); err != nil {
			return nil, nil, services.Wrap(services.ErrContract, "loop", "creator", "malformed candidate", err)
		}

		review, err := req.Reviewer.Review(ctx, ReviewerInput{
			AssetID:   req.AssetID,
			Iteration: iteration,
			Candidate: creatorOut.Candidate,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("reviewer iteration %d: %w", iteration, err)
		}
		// Some agents don't round-trip the iteration number faithfully;
		// repair it rather than fail.
		if review.Iteration != iteration {
			review = review.WithIteration(iteration)
		}
		if err := review.Validate(); err != nil {
			return nil, nil, services.Wrap(services.ErrContract, "loop", "reviewer", "malformed review", err)
		}

		record := IterationRecord{
			Iteration:   iteration,
			CreatorDone: creatorOut.Done,
			Candidate:   creatorOut.Candidate,
			Review:      review,
		}
		iterations = append(iterations, record)
		writes = append(writes, ProtocolWrite{
			Path:    req.Paths.ProtocolIterationPath(req.AssetID, iteration),
			Payload: record.payload(),
		})

		prevCandidate = &record.Candidate
		prevReview = &record.Review

		proposed = decideOutcome(review, creatorOut.Done, iteration, req.MaxIterations)
		if proposed != nil {
			break
		}
	}

	next := &ProtocolState{
		AssetID:       req.AssetID,
		MaxIterations: req.MaxIterations,
		Iterations:    iterations,
		Decision:      MergeDecisions(state.Decision, proposed),
	}
	writes = append(writes, ProtocolWrite{
		Path:    req.Paths.ProtocolStatePath(req.AssetID),
		Payload: next.payload(),
	})
	return next, writes, nil
}

// decideOutcome applies the transition table after each iteration.
// Convergence requires the reviewer's ok and the creator's done
// simultaneously; a reviewer verdict of needs_human is not itself terminal
// and only the iteration cap promotes the loop to the needs_human outcome.
func decideOutcome(review domain.ReviewIteration, creatorDone bool, iteration, maxIterations int) *Decision {
	if review.Verdict == domain.VerdictOK && creatorDone {
		return terminalDecision(OutcomeConverged, iteration, ReasonConverged)
	}
	if iteration >= maxIterations {
		return terminalDecision(OutcomeNeedsHuman, iteration, ReasonIterationLimit)
	}
	return nil
}
