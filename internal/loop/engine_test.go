package loop_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

type testPaths struct{}

func (testPaths) ProtocolIterationPath(assetID string, iteration int) string {
	return fmt.Sprintf("copy/protocol/%s/iteration_%02d.json", assetID, iteration)
}

func (testPaths) ProtocolStatePath(assetID string) string {
	return fmt.Sprintf("copy/protocol/%s/state.json", assetID)
}

func testCandidate(assetID string, iteration int) domain.Candidate {
	return domain.Candidate{
		ID:        uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("candidate:%s:%d", assetID, iteration))),
		AssetID:   assetID,
		Format:    domain.FormatMarkdown,
		Content:   fmt.Sprintf("draft %d\n", iteration),
		CreatedAt: time.Date(2026, 3, 1, 0, 0, iteration, 0, time.UTC),
	}
}

type scriptedCreator struct {
	done  []bool
	calls []loop.CreatorInput
	asset string
}

func (c *scriptedCreator) Create(_ context.Context, in loop.CreatorInput) (loop.CreatorOutput, error) {
	c.calls = append(c.calls, in)
	if len(c.done) == 0 {
		return loop.CreatorOutput{}, errors.New("scripted creator exhausted")
	}
	done := c.done[0]
	c.done = c.done[1:]
	asset := c.asset
	if asset == "" {
		asset = in.AssetID
	}
	return loop.CreatorOutput{Candidate: testCandidate(asset, in.Iteration), Done: done}, nil
}

type scriptedReviewer struct {
	verdicts []domain.Verdict
	calls    []loop.ReviewerInput
	// iteration value to report instead of the true one, when non-zero
	misreport int
}

func (r *scriptedReviewer) Review(_ context.Context, in loop.ReviewerInput) (domain.ReviewIteration, error) {
	r.calls = append(r.calls, in)
	if len(r.verdicts) == 0 {
		return domain.ReviewIteration{}, errors.New("scripted reviewer exhausted")
	}
	verdict := r.verdicts[0]
	r.verdicts = r.verdicts[1:]
	iteration := in.Iteration
	if r.misreport != 0 {
		iteration = r.misreport
	}
	review := domain.ReviewIteration{
		Iteration: iteration,
		Verdict:   verdict,
		Reviewer:  "scripted",
		CreatedAt: time.Date(2026, 3, 1, 1, 0, in.Iteration, 0, time.UTC),
	}
	if verdict != domain.VerdictOK {
		review.Issues = []domain.ReviewIssue{{
			ID:       uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("issue:%s:%d", in.AssetID, in.Iteration))),
			Severity: domain.SeverityError,
			Message:  "needs work",
		}}
	}
	return review, nil
}

func advance(t *testing.T, req loop.AdvanceRequest) (*loop.ProtocolState, []loop.ProtocolWrite) {
	t.Helper()
	state, writes, err := loop.Advance(context.Background(), req)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	return state, writes
}

func TestAdvanceConvergesWhenReviewerAndCreatorAgree(t *testing.T) {
	creator := &scriptedCreator{done: []bool{false, true}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictOK}}

	state, writes := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 5,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	if state.Decision == nil || state.Decision.Outcome != loop.OutcomeConverged {
		t.Fatalf("expected converged decision, got %#v", state.Decision)
	}
	if state.Decision.FinalIteration != 2 {
		t.Fatalf("expected final iteration 2, got %d", state.Decision.FinalIteration)
	}
	if state.Decision.Reason != loop.ReasonConverged {
		t.Fatalf("unexpected reason %q", state.Decision.Reason)
	}
	if len(state.Iterations) != 2 {
		t.Fatalf("expected exactly 2 iterations, got %d", len(state.Iterations))
	}
	// two iteration writes plus the final state snapshot
	if len(writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(writes))
	}
	if writes[0].Path != "copy/protocol/description/iteration_01.json" {
		t.Fatalf("unexpected first write path %q", writes[0].Path)
	}
	if writes[2].Path != "copy/protocol/description/state.json" {
		t.Fatalf("unexpected final write path %q", writes[2].Path)
	}
	for _, field := range []string{"outcome", "final_iteration", "reason"} {
		if !state.Decision.Locked(field) {
			t.Fatalf("expected %s to be locked", field)
		}
	}
}

func TestAdvanceExhaustsIterationBudget(t *testing.T) {
	creator := &scriptedCreator{done: []bool{false, false}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictChangesRequested}}

	state, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "slug",
		MaxIterations: 2,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	if state.Decision == nil || state.Decision.Outcome != loop.OutcomeNeedsHuman {
		t.Fatalf("expected needs_human, got %#v", state.Decision)
	}
	if state.Decision.FinalIteration != 2 || state.Decision.Reason != loop.ReasonIterationLimit {
		t.Fatalf("unexpected decision %#v", state.Decision)
	}
	if len(state.Iterations) != 2 {
		t.Fatalf("expected 2 recorded iterations, got %d", len(state.Iterations))
	}
}

func TestAdvanceCreatorDoneIgnoredWithoutReviewerOK(t *testing.T) {
	creator := &scriptedCreator{done: []bool{true, true, true}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{
		domain.VerdictChangesRequested,
		domain.VerdictNeedsHuman,
		domain.VerdictChangesRequested,
	}}

	state, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "shownotes",
		MaxIterations: 3,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	// needs_human from the reviewer is not terminal by itself; the loop runs
	// to the cap and only then promotes.
	if state.Decision == nil || state.Decision.Outcome != loop.OutcomeNeedsHuman {
		t.Fatalf("expected needs_human at cap, got %#v", state.Decision)
	}
	if len(state.Iterations) != 3 {
		t.Fatalf("expected all 3 iterations recorded, got %d", len(state.Iterations))
	}
}

func TestAdvanceFrozenStateIsNoOp(t *testing.T) {
	creator := &scriptedCreator{done: []bool{false, true}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictOK}}

	first, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 4,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	// The second call's agents would explode if invoked.
	failing := loop.CreatorFunc(func(context.Context, loop.CreatorInput) (loop.CreatorOutput, error) {
		t.Fatal("creator must not be called on a frozen loop")
		return loop.CreatorOutput{}, nil
	})
	failingReviewer := loop.ReviewerFunc(func(context.Context, loop.ReviewerInput) (domain.ReviewIteration, error) {
		t.Fatal("reviewer must not be called on a frozen loop")
		return domain.ReviewIteration{}, nil
	})

	second, writes, err := loop.Advance(context.Background(), loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 4,
		Existing:      first,
		Creator:       failing,
		Reviewer:      failingReviewer,
	})
	if err != nil {
		t.Fatalf("Advance on frozen state failed: %v", err)
	}
	if len(writes) != 0 {
		t.Fatalf("expected zero writes, got %d", len(writes))
	}
	if second != first {
		t.Fatal("expected the same state back")
	}
}

func TestAdvanceResumesFromRecordedIterations(t *testing.T) {
	creator := &scriptedCreator{done: []bool{false}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested}}

	partial, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 3,
		Creator:       creator,
		Reviewer:      reviewer,
	})
	if partial.Decision != nil {
		t.Fatalf("expected in-progress state, got decision %#v", partial.Decision)
	}

	resumeCreator := &scriptedCreator{done: []bool{true}}
	resumeReviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictOK}}
	resumed, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 3,
		Existing:      partial,
		Creator:       resumeCreator,
		Reviewer:      resumeReviewer,
	})

	if len(resumeCreator.calls) != 1 {
		t.Fatalf("expected a single creator call, got %d", len(resumeCreator.calls))
	}
	call := resumeCreator.calls[0]
	if call.Iteration != 2 {
		t.Fatalf("expected resume at iteration 2, got %d", call.Iteration)
	}
	if call.PreviousCandidate == nil || call.PreviousCandidate.ID != partial.Iterations[0].Candidate.ID {
		t.Fatalf("expected previous candidate carried forward, got %#v", call.PreviousCandidate)
	}
	if call.PreviousReview == nil || call.PreviousReview.Iteration != 1 {
		t.Fatalf("expected previous review carried forward, got %#v", call.PreviousReview)
	}
	if resumed.Decision == nil || resumed.Decision.Outcome != loop.OutcomeConverged || resumed.Decision.FinalIteration != 2 {
		t.Fatalf("unexpected resumed decision %#v", resumed.Decision)
	}
}

func TestAdvanceRepairsMisreportedReviewIteration(t *testing.T) {
	creator := &scriptedCreator{done: []bool{true}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictOK}, misreport: 99}

	state, _ := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "title_seo",
		MaxIterations: 2,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	if state.Iterations[0].Review.Iteration != 1 {
		t.Fatalf("expected review iteration repaired to 1, got %d", state.Iterations[0].Review.Iteration)
	}
}

func TestAdvanceWrongAssetIDIsContractError(t *testing.T) {
	creator := &scriptedCreator{done: []bool{true}, asset: "shownotes"}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictOK}}

	_, _, err := loop.Advance(context.Background(), loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 1,
		Creator:       creator,
		Reviewer:      reviewer,
	})
	if !errors.Is(err, services.ErrContract) {
		t.Fatalf("expected contract error, got %v", err)
	}
}

func TestAdvanceMismatchedResumeParametersFailFast(t *testing.T) {
	existing := &loop.ProtocolState{AssetID: "description", MaxIterations: 3}

	_, _, err := loop.Advance(context.Background(), loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 4,
		Existing:      existing,
		Creator:       &scriptedCreator{},
		Reviewer:      &scriptedReviewer{},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for max iteration mismatch, got %v", err)
	}

	_, _, err = loop.Advance(context.Background(), loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "slug",
		MaxIterations: 3,
		Existing:      existing,
		Creator:       &scriptedCreator{},
		Reviewer:      &scriptedReviewer{},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for asset mismatch, got %v", err)
	}
}

func TestAdvanceAgentFailureRecordsNothing(t *testing.T) {
	boom := errors.New("subprocess died")
	creator := loop.CreatorFunc(func(_ context.Context, in loop.CreatorInput) (loop.CreatorOutput, error) {
		if in.Iteration == 2 {
			return loop.CreatorOutput{}, boom
		}
		return loop.CreatorOutput{Candidate: testCandidate(in.AssetID, in.Iteration), Done: false}, nil
	})
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictChangesRequested}}

	_, _, err := loop.Advance(context.Background(), loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 3,
		Creator:       creator,
		Reviewer:      reviewer,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected agent failure to propagate, got %v", err)
	}
}

func TestMergeDecisionsKeepsLockedFields(t *testing.T) {
	existing := &loop.Decision{
		Outcome:        loop.OutcomeConverged,
		FinalIteration: 2,
		Reason:         loop.ReasonConverged,
		LockedFields:   []string{"outcome"},
	}
	proposed := &loop.Decision{
		Outcome:        loop.OutcomeNeedsHuman,
		FinalIteration: 5,
		Reason:         loop.ReasonIterationLimit,
		LockedFields:   []string{"reason"},
	}

	merged := loop.MergeDecisions(existing, proposed)
	if merged.Outcome != loop.OutcomeConverged {
		t.Fatalf("locked outcome overwritten: %#v", merged)
	}
	if merged.FinalIteration != 5 {
		t.Fatalf("unlocked final_iteration not taken from proposal: %#v", merged)
	}
	if merged.Reason != loop.ReasonIterationLimit {
		t.Fatalf("unlocked reason not taken from proposal: %#v", merged)
	}
	if !merged.Locked("outcome") || !merged.Locked("reason") {
		t.Fatalf("expected locked sets to union, got %v", merged.LockedFields)
	}
}

func TestStateRoundTrip(t *testing.T) {
	creator := &scriptedCreator{done: []bool{false, true}}
	reviewer := &scriptedReviewer{verdicts: []domain.Verdict{domain.VerdictChangesRequested, domain.VerdictOK}}

	state, writes := advance(t, loop.AdvanceRequest{
		Paths:         testPaths{},
		AssetID:       "description",
		MaxIterations: 3,
		Creator:       creator,
		Reviewer:      reviewer,
	})

	final := writes[len(writes)-1]
	raw, err := final.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := loop.DecodeState(raw)
	if err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if decoded.AssetID != state.AssetID || decoded.MaxIterations != state.MaxIterations {
		t.Fatalf("round trip lost identity: %#v", decoded)
	}
	if len(decoded.Iterations) != len(state.Iterations) {
		t.Fatalf("round trip lost iterations: %d vs %d", len(decoded.Iterations), len(state.Iterations))
	}
	if decoded.Decision == nil || decoded.Decision.Outcome != loop.OutcomeConverged {
		t.Fatalf("round trip lost decision: %#v", decoded.Decision)
	}
	if !decoded.Frozen() {
		t.Fatal("expected decoded terminal state to be frozen")
	}
}
