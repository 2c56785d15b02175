package workflow

import (
	"context"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/textutil"
)

// LockedSelectionCode is the issue code injected when a candidate diverges
// from a human-approved selection.
const LockedSelectionCode = "locked_selection"

// lockedSelectionKinds are the asset kinds whose selected text, once a human
// has finalized it, an in-flight loop may never diverge from.
var lockedSelectionKinds = map[domain.AssetKind]struct{}{
	domain.KindSlug:             {},
	domain.KindTitleSEO:         {},
	domain.KindTitleDetail:      {},
	domain.KindSubtitleAuphonic: {},
}

// KindHasLockedSelection reports whether an asset kind is under the
// locked-selection policy.
func KindHasLockedSelection(kind domain.AssetKind) bool {
	_, ok := lockedSelectionKinds[kind]
	return ok
}

// LockSelected decorates a reviewer so every candidate is compared against
// the locked selected text. A mismatch injects an error-severity
// locked_selection issue and raises the verdict to at least
// changes_requested; an already-worse verdict is never downgraded. Matching
// candidates pass through untouched.
func LockSelected(next loop.Reviewer, selectedText string) loop.Reviewer {
	locked := textutil.EnsureTrailingNewline(selectedText)
	return loop.ReviewerFunc(func(ctx context.Context, input loop.ReviewerInput) (domain.ReviewIteration, error) {
		review, err := next.Review(ctx, input)
		if err != nil {
			return domain.ReviewIteration{}, err
		}
		if textutil.EnsureTrailingNewline(input.Candidate.Content) == locked {
			return review, nil
		}

		review.Issues = append(review.Issues, domain.ReviewIssue{
			ID:       uuid.New(),
			Severity: domain.SeverityError,
			Code:     LockedSelectionCode,
			Message:  "candidate diverges from the locked selected text",
			Field:    "content",
		})
		if review.Verdict == domain.VerdictOK {
			review.Verdict = domain.VerdictChangesRequested
		}
		return review, nil
	})
}
